package dto

import "time"

// SessionStartResponse is returned by both fresh starts and resumes.
type SessionStartResponse struct {
	SubmissionID         uint      `json:"submission_id"`
	QuizID               uint      `json:"quiz_id"`
	StartedAt            time.Time `json:"started_at"`
	Resumed              bool      `json:"resumed"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds"`
	CurrentQuestionID    uint      `json:"current_question_id"`
	QuestionCount        int       `json:"question_count"`
}

// AnswerSubmitRequest records one answer for the current attempt.
type AnswerSubmitRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	OptionID   uint `json:"option_id" validate:"required"`
}

// NavigateRequest moves the attempt's current-question pointer.
type NavigateRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
}

// AnswerAck confirms a recorded answer without echoing the answer key.
type AnswerAck struct {
	SubmissionID uint      `json:"submission_id"`
	QuestionID   uint      `json:"question_id"`
	OptionID     uint      `json:"option_id"`
	AnsweredAt   time.Time `json:"answered_at"`
}

// SubmissionResultResponse is the terminal scoring outcome of an attempt.
type SubmissionResultResponse struct {
	SubmissionID     uint       `json:"submission_id"`
	QuizID           uint       `json:"quiz_id"`
	StudentID        uint       `json:"student_id"`
	TotalScore       int        `json:"total_score"`
	MaxScore         int        `json:"max_score"`
	Percentage       int        `json:"percentage"`
	TimeTakenMinutes int        `json:"time_taken_minutes"`
	SubmittedAt      *time.Time `json:"submitted_at"`
}

// SessionStateResponse is a read-only view of a submission.
type SessionStateResponse struct {
	SubmissionID uint       `json:"submission_id"`
	QuizID       uint       `json:"quiz_id"`
	StudentID    uint       `json:"student_id"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	IsCompleted  bool       `json:"is_completed"`
	TotalScore   int        `json:"total_score"`
	MaxScore     int        `json:"max_score"`
	Answered     int        `json:"answered"`
}
