package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/models"
	"github.com/classpulse/quiz-go-api/internal/observability"
	"github.com/classpulse/quiz-go-api/internal/repository"
)

// AnswerLedger owns the durable per-(submission, question) answer slot.
type AnswerLedger interface {
	// Record validates and upserts one answer (last write wins) and fans a
	// live update out to quiz viewers. A completed submission rejects the
	// write with ErrSubmissionCompleted, which is what makes a late timer
	// fire racing an explicit submit safe.
	Record(ctx context.Context, submissionID, questionID, optionID uint, isTimeExpired bool) (models.AnswerRecord, error)
}

type answerLedger struct {
	submissions repository.SubmissionRepository
	quizzes     repository.QuizRepository
	enrollments repository.EnrollmentRepository
	broadcaster Broadcaster
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnswerLedger constructs the answer ledger.
func NewAnswerLedger(
	submissions repository.SubmissionRepository,
	quizzes repository.QuizRepository,
	enrollments repository.EnrollmentRepository,
	broadcaster Broadcaster,
	logger zerolog.Logger,
) AnswerLedger {
	return &answerLedger{
		submissions: submissions,
		quizzes:     quizzes,
		enrollments: enrollments,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "answer_ledger").Logger(),
		now:         time.Now,
	}
}

func (l *answerLedger) Record(ctx context.Context, submissionID, questionID, optionID uint, isTimeExpired bool) (models.AnswerRecord, error) {
	submission, err := l.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AnswerRecord{}, ErrSubmissionNotFound
		}
		return models.AnswerRecord{}, err
	}

	if submission.IsCompleted {
		return models.AnswerRecord{}, ErrSubmissionCompleted
	}

	quiz, err := l.quizzes.GetByID(ctx, submission.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AnswerRecord{}, ErrQuizNotFound
		}
		return models.AnswerRecord{}, err
	}

	question, ok := quiz.QuestionByID(questionID)
	if !ok {
		return models.AnswerRecord{}, ErrQuestionNotInQuiz
	}

	option, ok := question.OptionByID(optionID)
	if !ok {
		return models.AnswerRecord{}, ErrOptionNotInQuestion
	}

	answer := models.AnswerRecord{
		SubmissionID:     submissionID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		IsCorrect:        option.IsCorrect,
		IsTimeExpired:    isTimeExpired,
		AnsweredAt:       l.now().UTC(),
	}

	if err := l.submissions.UpsertAnswer(ctx, &answer); err != nil {
		return models.AnswerRecord{}, err
	}

	// Transient viewer update only; failure here never rolls back the write.
	l.publishLiveAnswer(ctx, submission, quiz, answer, option.Text)

	return answer, nil
}

func (l *answerLedger) publishLiveAnswer(ctx context.Context, submission models.Submission, quiz models.Quiz, answer models.AnswerRecord, optionText string) {
	studentName := ""
	if student, err := l.enrollments.GetStudent(ctx, submission.StudentID); err == nil {
		studentName = student.Name
	}

	event := dto.NewLiveEvent(dto.EventLiveAnswerUpdate, dto.LiveAnswerPayload{
		QuizID:           quiz.ID,
		SubmissionID:     submission.ID,
		StudentID:        submission.StudentID,
		StudentName:      studentName,
		QuestionID:       answer.QuestionID,
		SelectedOptionID: answer.SelectedOptionID,
		OptionText:       optionText,
		AnsweredAt:       answer.AnsweredAt,
		IsTimeExpired:    answer.IsTimeExpired,
	})
	if event.Type == "" {
		return
	}

	l.broadcaster.PublishToRoom(QuizRoom(quiz.ID), event)
	observability.LiveEventsPublished().WithLabelValues(dto.EventLiveAnswerUpdate).Inc()
}
