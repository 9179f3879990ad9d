package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/models"
)

type countingQuizRepo struct {
	mu    sync.Mutex
	quiz  models.Quiz
	reads int
}

func (r *countingQuizRepo) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != r.quiz.ID {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	r.reads++
	return r.quiz, nil
}

func (r *countingQuizRepo) SetLiveActive(ctx context.Context, id uint, isLive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quiz.IsLiveActive = isLive
	return nil
}

func (r *countingQuizRepo) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func cacheFixture(t *testing.T) (*CachedQuizRepository, *countingQuizRepo) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	inner := &countingQuizRepo{quiz: models.Quiz{
		ID:               10,
		ClassID:          1,
		ProfessorID:      7,
		Title:            "Networking basics",
		TimeLimitMinutes: 30,
		Questions: []models.Question{
			{
				ID: 100, QuizID: 10, Text: "What does TCP stand for?", Points: 2, TimeLimitSeconds: 20,
				Options: []models.Option{
					{ID: 1000, QuestionID: 100, Text: "Transmission Control Protocol", IsCorrect: true},
					{ID: 1001, QuestionID: 100, Text: "Transfer Copy Protocol"},
				},
			},
		},
	}}

	return NewCachedQuizRepository(inner, redisClient, time.Minute, zerolog.Nop()), inner
}

func TestQuizCacheServesRepeatReadsFromRedis(t *testing.T) {
	cache, inner := cacheFixture(t)
	ctx := context.Background()

	quiz, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "Networking basics", quiz.Title)
	require.Equal(t, 1, inner.readCount())

	again, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, inner.readCount(), "second read must come from the cache")
	require.Equal(t, quiz.ID, again.ID)
	require.Len(t, again.Questions, 1)
}

func TestQuizCachePreservesAnswerKey(t *testing.T) {
	cache, _ := cacheFixture(t)
	ctx := context.Background()

	_, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)

	// The cached round trip must keep correctness flags even though the
	// public JSON rendering of options hides them.
	quiz, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)
	question, ok := quiz.QuestionByID(100)
	require.True(t, ok)
	option, ok := question.OptionByID(1000)
	require.True(t, ok)
	require.True(t, option.IsCorrect)
	wrong, ok := question.OptionByID(1001)
	require.True(t, ok)
	require.False(t, wrong.IsCorrect)
}

func TestQuizCacheSetLiveActiveInvalidates(t *testing.T) {
	cache, inner := cacheFixture(t)
	ctx := context.Background()

	_, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, inner.readCount())

	require.NoError(t, cache.SetLiveActive(ctx, 10, true))

	quiz, err := cache.GetByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 2, inner.readCount(), "invalidation must force a database read")
	require.True(t, quiz.IsLiveActive)
}

func TestQuizCachePropagatesNotFound(t *testing.T) {
	cache, _ := cacheFixture(t)

	_, err := cache.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
