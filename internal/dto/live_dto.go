package dto

import (
	"encoding/json"
	"time"
)

// Event types carried on the live channel.
const (
	EventQuizLiveStatusChange = "quiz_live_status_change"
	EventLiveAnswerUpdate     = "live_answer_update"
	EventSubmissionCompleted  = "submission_completed"
)

// LiveEvent is the envelope every hub message travels in. Payload is already
// marshalled so relays can forward it without knowing the concrete type.
type LiveEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewLiveEvent wraps a payload into an envelope. Marshal failures return a
// zero event; callers treat an empty Type as "nothing to send".
func NewLiveEvent(eventType string, payload interface{}) LiveEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		return LiveEvent{}
	}
	return LiveEvent{Type: eventType, Payload: raw}
}

// QuizStatusPayload announces a live-availability flip to students and viewers.
type QuizStatusPayload struct {
	QuizID       uint                   `json:"quiz_id"`
	QuizTitle    string                 `json:"quiz_title"`
	IsLiveActive bool                   `json:"is_live_active"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
	ChangedAt    time.Time              `json:"changed_at"`
}

// LiveAnswerPayload streams one student's latest selection to quiz viewers.
// It exists only on the socket; the durable ledger is the sole history.
type LiveAnswerPayload struct {
	QuizID           uint      `json:"quiz_id"`
	SubmissionID     uint      `json:"submission_id"`
	StudentID        uint      `json:"student_id"`
	StudentName      string    `json:"student_name"`
	QuestionID       uint      `json:"question_id"`
	SelectedOptionID uint      `json:"selected_option_id"`
	OptionText       string    `json:"option_text"`
	AnsweredAt       time.Time `json:"answered_at"`
	IsTimeExpired    bool      `json:"is_time_expired"`
}

// CompletionPayload notifies quiz viewers that an attempt reached its terminal state.
type CompletionPayload struct {
	QuizID       uint      `json:"quiz_id"`
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	TotalScore   int       `json:"total_score"`
	MaxScore     int       `json:"max_score"`
	Percentage   int       `json:"percentage"`
	CompletedAt  time.Time `json:"completed_at"`
}
