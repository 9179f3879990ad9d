package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/models"
)

// QuizRepository defines read access to quiz content and the best-effort
// durable activation flag. Quiz authoring lives in another component; the
// answer key is frozen once any submission references the quiz, so reads
// performed here are safe to cache.
type QuizRepository interface {
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	SetLiveActive(ctx context.Context, id uint, isLive bool) error
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates the repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Options").
		First(&quiz, id).Error
	if err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) SetLiveActive(ctx context.Context, id uint, isLive bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("is_live_active", isLive).Error
}
