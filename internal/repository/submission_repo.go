package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classpulse/quiz-go-api/internal/models"
)

// CompletionUpdate carries the terminal-state fields written exactly once per submission.
type CompletionUpdate struct {
	SubmittedAt      time.Time
	TotalScore       int
	MaxScore         int
	TimeTakenMinutes int
}

// SubmissionRepository owns submission rows and their answer records.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetIncomplete(ctx context.Context, quizID, studentID uint) (models.Submission, error)
	GetCompleted(ctx context.Context, quizID, studentID uint) (models.Submission, error)
	// MarkCompleted performs the single terminal-state transition. It reports
	// whether this call actually flipped the row; false means another path
	// completed the submission first and the stored result stands.
	MarkCompleted(ctx context.Context, id uint, update CompletionUpdate) (bool, error)
	UpsertAnswer(ctx context.Context, answer *models.AnswerRecord) error
	ListAnswers(ctx context.Context, submissionID uint) ([]models.AnswerRecord, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetIncomplete(ctx context.Context, quizID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Where("student_id = ?", studentID).
		Where("is_completed = ?", false).
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetCompleted(ctx context.Context, quizID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Where("student_id = ?", studentID).
		Where("is_completed = ?", true).
		Order("submitted_at DESC").
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) MarkCompleted(ctx context.Context, id uint, update CompletionUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Where("is_completed = ?", false).
		Updates(map[string]interface{}{
			"is_completed":       true,
			"submitted_at":       update.SubmittedAt,
			"total_score":        update.TotalScore,
			"max_score":          update.MaxScore,
			"time_taken_minutes": update.TimeTakenMinutes,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepository) UpsertAnswer(ctx context.Context, answer *models.AnswerRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_id", "is_correct", "is_time_expired", "answered_at",
			}),
		}).
		Create(answer).Error
}

func (r *submissionRepository) ListAnswers(ctx context.Context, submissionID uint) ([]models.AnswerRecord, error) {
	var answers []models.AnswerRecord
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}
