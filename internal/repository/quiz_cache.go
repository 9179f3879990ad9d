package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/classpulse/quiz-go-api/internal/models"
)

// cachedQuiz is the wire form stored in Redis. Option correctness is excluded
// from the public JSON rendering of models.Option, so the cache carries its
// own shape that keeps the answer key intact.
type cachedQuiz struct {
	ID                     uint             `json:"id"`
	ClassID                uint             `json:"class_id"`
	ProfessorID            uint             `json:"professor_id"`
	Title                  string           `json:"title"`
	TimeLimitMinutes       int              `json:"time_limit_minutes"`
	Deadline               *time.Time       `json:"deadline"`
	IsLiveActive           bool             `json:"is_live_active"`
	DefaultQuestionSeconds int              `json:"default_question_seconds"`
	Questions              []cachedQuestion `json:"questions"`
}

type cachedQuestion struct {
	ID               uint           `json:"id"`
	Text             string         `json:"text"`
	Points           int            `json:"points"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	Position         int            `json:"position"`
	Options          []cachedOption `json:"options"`
}

type cachedOption struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// CachedQuizRepository is a read-through Redis cache over a QuizRepository.
// The answer key is frozen once any submission references the quiz, so stale
// reads within the TTL cannot change scoring. Cache misses collapse through
// singleflight so a popular quiz going live does not stampede the database.
type CachedQuizRepository struct {
	inner  QuizRepository
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	logger zerolog.Logger
}

// NewCachedQuizRepository wraps inner with a Redis quiz-content cache.
func NewCachedQuizRepository(inner QuizRepository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedQuizRepository {
	return &CachedQuizRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With().Str("component", "quiz_cache").Logger(),
	}
}

func (r *CachedQuizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	key := r.key(id)

	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var cached cachedQuiz
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached.toModel(), nil
		}
		r.logger.Warn().Uint("quiz_id", id).Msg("discarding corrupt quiz cache entry")
		_ = r.client.Del(ctx, key).Err()
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache while we waited.
		if raw, err := r.client.Get(ctx, key).Result(); err == nil {
			var cached cachedQuiz
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached.toModel(), nil
			}
		}

		quiz, err := r.inner.GetByID(ctx, id)
		if err != nil {
			return models.Quiz{}, err
		}

		payload, err := json.Marshal(fromModel(quiz))
		if err == nil {
			if err := r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err(); err != nil {
				r.logger.Warn().Err(err).Uint("quiz_id", id).Msg("failed to cache quiz content")
			}
		}
		return quiz, nil
	})
	if err != nil {
		return models.Quiz{}, err
	}
	return result.(models.Quiz), nil
}

// SetLiveActive writes through to the durable flag and drops the cached copy so
// the next read observes the new flag.
func (r *CachedQuizRepository) SetLiveActive(ctx context.Context, id uint, isLive bool) error {
	if err := r.inner.SetLiveActive(ctx, id, isLive); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		r.logger.Warn().Err(err).Uint("quiz_id", id).Msg("failed to invalidate quiz cache")
	}
	return nil
}

func (r *CachedQuizRepository) key(id uint) string {
	return fmt.Sprintf("quiz:content:%d", id)
}

func (r *CachedQuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func fromModel(quiz models.Quiz) cachedQuiz {
	cached := cachedQuiz{
		ID:                     quiz.ID,
		ClassID:                quiz.ClassID,
		ProfessorID:            quiz.ProfessorID,
		Title:                  quiz.Title,
		TimeLimitMinutes:       quiz.TimeLimitMinutes,
		Deadline:               quiz.Deadline,
		IsLiveActive:           quiz.IsLiveActive,
		DefaultQuestionSeconds: quiz.DefaultQuestionSeconds,
	}
	for _, question := range quiz.Questions {
		cq := cachedQuestion{
			ID:               question.ID,
			Text:             question.Text,
			Points:           question.Points,
			TimeLimitSeconds: question.TimeLimitSeconds,
			Position:         question.Position,
		}
		for _, option := range question.Options {
			cq.Options = append(cq.Options, cachedOption{ID: option.ID, Text: option.Text, IsCorrect: option.IsCorrect})
		}
		cached.Questions = append(cached.Questions, cq)
	}
	return cached
}

func (c cachedQuiz) toModel() models.Quiz {
	quiz := models.Quiz{
		ID:                     c.ID,
		ClassID:                c.ClassID,
		ProfessorID:            c.ProfessorID,
		Title:                  c.Title,
		TimeLimitMinutes:       c.TimeLimitMinutes,
		Deadline:               c.Deadline,
		IsLiveActive:           c.IsLiveActive,
		DefaultQuestionSeconds: c.DefaultQuestionSeconds,
	}
	for _, cq := range c.Questions {
		question := models.Question{
			ID:               cq.ID,
			QuizID:           c.ID,
			Text:             cq.Text,
			Points:           cq.Points,
			TimeLimitSeconds: cq.TimeLimitSeconds,
			Position:         cq.Position,
		}
		for _, co := range cq.Options {
			question.Options = append(question.Options, models.Option{ID: co.ID, QuestionID: cq.ID, Text: co.Text, IsCorrect: co.IsCorrect})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}
