package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/classpulse/quiz-go-api/internal/observability"
)

const expiryHandlerTimeout = 10 * time.Second

// ExpiryHandler receives timer-driven outcomes. The session service implements
// it; both calls are safe after the submission has completed through another
// path (the ledger rejects the write, completion is idempotent).
type ExpiryHandler interface {
	RecordExpiredAnswer(ctx context.Context, submissionID, questionID, optionID uint)
	CompleteExpired(ctx context.Context, submissionID uint)
}

// QuestionTimer pairs a question with its countdown duration.
type QuestionTimer struct {
	QuestionID uint
	Duration   time.Duration
}

// TimerScheduler runs one independent cooperative countdown per submission's
// current question. All mutable per-attempt state (pointer, selections,
// completion latch, the single active timer handle) lives in one owned object
// mutated under its lock, so a late fire from a replaced timer can never race
// a freshly armed one.
type TimerScheduler struct {
	clock   clockwork.Clock
	logger  zerolog.Logger
	handler ExpiryHandler

	mu       sync.Mutex
	sessions map[uint]*attemptTimers
}

type attemptTimers struct {
	mu           sync.Mutex
	submissionID uint
	questions    []QuestionTimer
	index        map[uint]int
	current      int
	timer        clockwork.Timer
	cancelCh     chan struct{}
	generation   uint64
	deadline     time.Time
	selections   map[uint]uint
	done         bool
}

// NewTimerScheduler constructs a scheduler on the given clock. Production
// wiring passes clockwork.NewRealClock; tests drive a fake clock.
func NewTimerScheduler(clock clockwork.Clock, logger zerolog.Logger) *TimerScheduler {
	return &TimerScheduler{
		clock:    clock,
		logger:   logger.With().Str("component", "timer_scheduler").Logger(),
		sessions: make(map[uint]*attemptTimers),
	}
}

// SetHandler wires the expiry callback target. Must be called before any
// session is started; split from the constructor because the session service
// and the scheduler reference each other.
func (s *TimerScheduler) SetHandler(handler ExpiryHandler) {
	s.handler = handler
}

// StartSession registers a submission and arms a full-duration timer for its
// first question. Restarting an already-tracked submission replaces its state,
// which covers resume-after-restart: the pointer begins at the first question
// and every entry re-arms fresh.
func (s *TimerScheduler) StartSession(submissionID uint, questions []QuestionTimer) {
	if len(questions) == 0 {
		return
	}

	index := make(map[uint]int, len(questions))
	for i, q := range questions {
		index[q.QuestionID] = i
	}

	attempt := &attemptTimers{
		submissionID: submissionID,
		questions:    questions,
		index:        index,
		selections:   make(map[uint]uint),
	}

	s.mu.Lock()
	old, hadOld := s.sessions[submissionID]
	s.sessions[submissionID] = attempt
	s.mu.Unlock()

	if hadOld {
		old.mu.Lock()
		old.done = true
		old.cancelLocked()
		old.mu.Unlock()
	}

	attempt.mu.Lock()
	s.armLocked(attempt)
	attempt.mu.Unlock()
}

// Navigate moves the attempt's pointer to the given question, cancelling the
// outstanding timer synchronously before arming a fresh full-duration one.
// Re-entering a previously visited question resets its countdown; remaining
// time is never carried across entries.
func (s *TimerScheduler) Navigate(submissionID, questionID uint) error {
	attempt, ok := s.get(submissionID)
	if !ok {
		return ErrSubmissionNotFound
	}

	attempt.mu.Lock()
	defer attempt.mu.Unlock()
	if attempt.done {
		return ErrSubmissionCompleted
	}

	target, ok := attempt.index[questionID]
	if !ok {
		return ErrQuestionNotInQuiz
	}

	attempt.cancelLocked()
	attempt.current = target
	s.armLocked(attempt)
	return nil
}

// NoteSelection mirrors the latest persisted selection into scheduler state so
// an expiry can re-record it flagged as time-expired.
func (s *TimerScheduler) NoteSelection(submissionID, questionID, optionID uint) {
	attempt, ok := s.get(submissionID)
	if !ok {
		return
	}
	attempt.mu.Lock()
	if !attempt.done {
		attempt.selections[questionID] = optionID
	}
	attempt.mu.Unlock()
}

// CurrentQuestion reports the attempt's current question id.
func (s *TimerScheduler) CurrentQuestion(submissionID uint) (uint, bool) {
	attempt, ok := s.get(submissionID)
	if !ok {
		return 0, false
	}
	attempt.mu.Lock()
	defer attempt.mu.Unlock()
	if attempt.done || attempt.current >= len(attempt.questions) {
		return 0, false
	}
	return attempt.questions[attempt.current].QuestionID, true
}

// EndSession cancels any outstanding timer and forgets the attempt. Called
// from the single completion path; a fire that was already in flight finds the
// done latch set and gives up.
func (s *TimerScheduler) EndSession(submissionID uint) {
	s.mu.Lock()
	attempt, ok := s.sessions[submissionID]
	if ok {
		delete(s.sessions, submissionID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	attempt.mu.Lock()
	attempt.done = true
	attempt.cancelLocked()
	attempt.mu.Unlock()
}

func (s *TimerScheduler) get(submissionID uint) (*attemptTimers, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.sessions[submissionID]
	return attempt, ok
}

// armLocked replaces the attempt's timer with a fresh full-duration one for
// the current question. Caller holds attempt.mu.
func (s *TimerScheduler) armLocked(attempt *attemptTimers) {
	question := attempt.questions[attempt.current]
	attempt.generation++
	generation := attempt.generation
	attempt.deadline = s.clock.Now().Add(question.Duration)

	timer := s.clock.NewTimer(question.Duration)
	cancelCh := make(chan struct{})
	attempt.timer = timer
	attempt.cancelCh = cancelCh

	s.logger.Debug().
		Uint("submission_id", attempt.submissionID).
		Uint("question_id", question.QuestionID).
		Dur("duration", question.Duration).
		Msg("armed question timer")

	go func() {
		select {
		case <-timer.Chan():
			s.onExpiry(attempt, generation)
		case <-cancelCh:
		}
	}()
}

// onExpiry handles a fired timer. A stale generation means the timer was
// replaced or cancelled after firing; the done latch means the submission
// completed through another path. Both make the fire a no-op.
func (s *TimerScheduler) onExpiry(attempt *attemptTimers, generation uint64) {
	attempt.mu.Lock()
	if attempt.done || generation != attempt.generation {
		attempt.mu.Unlock()
		return
	}

	question := attempt.questions[attempt.current]
	selection, hasSelection := attempt.selections[question.QuestionID]
	isLast := attempt.current == len(attempt.questions)-1
	if isLast {
		attempt.done = true
	} else {
		attempt.current++
		s.armLocked(attempt)
	}
	submissionID := attempt.submissionID
	attempt.mu.Unlock()

	observability.TimerExpirations().Inc()
	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("question_id", question.QuestionID).
		Bool("last_question", isLast).
		Msg("question timer expired")

	ctx, cancel := context.WithTimeout(context.Background(), expiryHandlerTimeout)
	defer cancel()

	if hasSelection {
		s.handler.RecordExpiredAnswer(ctx, submissionID, question.QuestionID, selection)
	}
	if isLast {
		s.handler.CompleteExpired(ctx, submissionID)
		s.mu.Lock()
		delete(s.sessions, submissionID)
		s.mu.Unlock()
	}
}

// cancelLocked stops and drains the outstanding timer, if any. Caller holds
// the attempt lock; bumping the generation makes an already-fired timer's
// callback a no-op even if the drain raced the fire.
func (a *attemptTimers) cancelLocked() {
	a.generation++
	if a.timer == nil {
		return
	}
	if !a.timer.Stop() {
		select {
		case <-a.timer.Chan():
		default:
		}
	}
	close(a.cancelCh)
	a.timer = nil
	a.cancelCh = nil
}
