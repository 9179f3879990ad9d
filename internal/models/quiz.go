package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz is a timed multiple-choice quiz owned by a professor and offered to one class.
type Quiz struct {
	ID                     uint              `gorm:"primaryKey" json:"id"`
	ClassID                uint              `gorm:"not null;index" json:"class_id"`
	ProfessorID            uint              `gorm:"not null;index" json:"professor_id"`
	Title                  string            `gorm:"size:255;not null" json:"title"`
	TimeLimitMinutes       int               `gorm:"not null" json:"time_limit_minutes"`
	Deadline               *time.Time        `json:"deadline"`
	IsLiveActive           bool              `gorm:"not null;default:false" json:"is_live_active"`
	DefaultQuestionSeconds int               `json:"default_question_seconds"`
	Meta                   datatypes.JSONMap `gorm:"type:json" json:"meta"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	Questions              []Question        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
}

// Question is a single multiple-choice question within a quiz.
//
// The answer key (the IsCorrect flags on its options) is frozen by the
// authoring component once any submission references the quiz; this package
// only ever reads it.
type Question struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	QuizID           uint      `gorm:"not null;index" json:"quiz_id"`
	Text             string    `gorm:"type:text;not null" json:"text"`
	Points           int       `gorm:"not null;default:1" json:"points"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	Position         int       `gorm:"not null;default:0" json:"position"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Options          []Option  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options"`
}

// Option is one selectable answer for a question.
type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"-"`
}

// PointsOrDefault returns the question's point value, treating zero as one point.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// QuestionByID looks up a question belonging to the quiz.
func (q Quiz) QuestionByID(questionID uint) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// OptionByID looks up an option belonging to the question.
func (q Question) OptionByID(optionID uint) (Option, bool) {
	for _, option := range q.Options {
		if option.ID == optionID {
			return option, true
		}
	}
	return Option{}, false
}
