package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	sessionsStarted     prometheus.Counter
	sessionsCompleted   prometheus.Counter
	timerExpirations    prometheus.Counter
	liveEventsPublished *prometheus.CounterVec
	liveEventsDropped   prometheus.Counter
	websocketConns      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors for the quiz API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of quiz sessions started, including resumes.",
		})

		sessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Total number of quiz sessions finalised.",
		})

		timerExpirations = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_timer_expirations_total",
			Help: "Total number of per-question timers that fired before an answer landed.",
		})

		liveEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_live_events_published_total",
			Help: "Total number of live events handed to the broadcaster, by event type.",
		}, []string{"event_type"})

		liveEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_live_events_dropped_total",
			Help: "Total number of live events dropped because a viewer could not keep up.",
		})

		websocketConns = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_websocket_connections",
			Help: "Number of live websocket viewers currently connected.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			sessionsStarted,
			sessionsCompleted,
			timerExpirations,
			liveEventsPublished,
			liveEventsDropped,
			websocketConns,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SessionsStarted exposes the counter for started quiz sessions.
func SessionsStarted() prometheus.Counter {
	RegisterMetrics()
	return sessionsStarted
}

// SessionsCompleted exposes the counter for finalised quiz sessions.
func SessionsCompleted() prometheus.Counter {
	RegisterMetrics()
	return sessionsCompleted
}

// TimerExpirations exposes the counter for question timer expirations.
func TimerExpirations() prometheus.Counter {
	RegisterMetrics()
	return timerExpirations
}

// LiveEventsPublished exposes the per-type counter for published live events.
func LiveEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return liveEventsPublished
}

// LiveEventsDropped exposes the counter for events dropped on slow viewers.
func LiveEventsDropped() prometheus.Counter {
	RegisterMetrics()
	return liveEventsDropped
}

// WebsocketConnections exposes the gauge of connected live viewers.
func WebsocketConnections() prometheus.Gauge {
	RegisterMetrics()
	return websocketConns
}
