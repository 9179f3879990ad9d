package models

import "time"

// Submission is one student's attempt at one quiz.
//
// At most one non-completed submission may exist per (quiz, student); the
// partial unique index on (quiz_id, student_id) enforces it for the in-flight
// row, and a duplicate-insert race is resolved by the caller as "retry as
// resume". Once IsCompleted flips to true the row is immutable.
type Submission struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	QuizID           uint           `gorm:"not null;uniqueIndex:idx_submission_active,where:is_completed = false" json:"quiz_id"`
	StudentID        uint           `gorm:"not null;uniqueIndex:idx_submission_active,where:is_completed = false" json:"student_id"`
	StartedAt        time.Time      `gorm:"not null" json:"started_at"`
	SubmittedAt      *time.Time     `json:"submitted_at"`
	IsCompleted      bool           `gorm:"not null;default:false" json:"is_completed"`
	TotalScore       int            `gorm:"not null;default:0" json:"total_score"`
	MaxScore         int            `gorm:"not null;default:0" json:"max_score"`
	TimeTakenMinutes int            `gorm:"not null;default:0" json:"time_taken_minutes"`
	SourceIP         string         `gorm:"size:64" json:"source_ip"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Answers          []AnswerRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

// Elapsed returns how long the attempt has been running.
func (s Submission) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// AnswerRecord stores a student's latest answer to one question within a
// submission. Upserts are last-write-wins; no history is retained.
type AnswerRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubmissionID     uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question" json:"submission_id"`
	QuestionID       uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question" json:"question_id"`
	SelectedOptionID uint      `gorm:"not null" json:"selected_option_id"`
	IsCorrect        bool      `gorm:"not null;default:false" json:"is_correct"`
	IsTimeExpired    bool      `gorm:"not null;default:false" json:"is_time_expired"`
	AnsweredAt       time.Time `gorm:"not null" json:"answered_at"`
}
