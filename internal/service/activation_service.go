package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/models"
	"github.com/classpulse/quiz-go-api/internal/observability"
	"github.com/classpulse/quiz-go-api/internal/repository"
)

// ActivationService flips a quiz's live availability and tells everyone who
// cares, right now. The broadcast (and its Redis mirror) is the authoritative
// "can this quiz be started" signal; the durable flag on the quiz row is a
// best-effort follower. Deactivation never interrupts an in-flight attempt;
// it only gates future start calls.
type ActivationService interface {
	LiveStateReader
	Toggle(ctx context.Context, quizID uint, isLive bool, professorID uint) (dto.ActivationStateResponse, error)
}

type activationService struct {
	quizzes     repository.QuizRepository
	enrollments repository.EnrollmentRepository
	broadcaster Broadcaster
	redis       *redis.Client
	stateTTL    time.Duration
	audit       ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewActivationService constructs the activation service. redisClient may be
// nil, in which case IsLive falls back to the durable flag alone.
func NewActivationService(
	quizzes repository.QuizRepository,
	enrollments repository.EnrollmentRepository,
	broadcaster Broadcaster,
	redisClient *redis.Client,
	stateTTL time.Duration,
	audit ActivityRecorder,
	logger zerolog.Logger,
) ActivationService {
	return &activationService{
		quizzes:     quizzes,
		enrollments: enrollments,
		broadcaster: broadcaster,
		redis:       redisClient,
		stateTTL:    stateTTL,
		audit:       audit,
		logger:      logger.With().Str("component", "activation_service").Logger(),
		now:         time.Now,
	}
}

func (s *activationService) Toggle(ctx context.Context, quizID uint, isLive bool, professorID uint) (dto.ActivationStateResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivationStateResponse{}, ErrQuizNotFound
		}
		return dto.ActivationStateResponse{}, err
	}
	if quiz.ProfessorID != professorID {
		return dto.ActivationStateResponse{}, ErrNotQuizOwner
	}

	// The transient state is written first: it is what start calls consult.
	s.cacheState(ctx, quizID, isLive)

	enrollments, err := s.enrollments.ListActiveStudents(ctx, quiz.ClassID)
	if err != nil {
		return dto.ActivationStateResponse{}, err
	}

	event := dto.NewLiveEvent(dto.EventQuizLiveStatusChange, dto.QuizStatusPayload{
		QuizID:       quiz.ID,
		QuizTitle:    quiz.Title,
		IsLiveActive: isLive,
		Meta:         map[string]interface{}(quiz.Meta),
		ChangedAt:    s.now().UTC(),
	})
	if event.Type != "" {
		// Targeted per-student delivery plus the room-scoped variant for
		// viewers already subscribed to the quiz.
		for _, enrollment := range enrollments {
			s.broadcaster.PublishToUser(strconv.FormatUint(uint64(enrollment.StudentID), 10), event)
		}
		s.broadcaster.PublishToRoom(QuizRoom(quiz.ID), event)
		s.broadcaster.PublishToRoom(ClassRoom(quiz.ClassID), event)
		observability.LiveEventsPublished().WithLabelValues(dto.EventQuizLiveStatusChange).Inc()
	}

	// Durable flag follows, best effort; readers must not assume it is
	// visible before their next hit of persistent storage.
	if err := s.quizzes.SetLiveActive(ctx, quizID, isLive); err != nil {
		s.logger.Warn().Err(err).Uint("quiz_id", quizID).Msg("failed to persist activation flag")
	}

	action := models.ActivityActionQuizActivated
	if !isLive {
		action = models.ActivityActionQuizDeactivated
	}
	s.recordActivity(ctx, professorID, action, quizID)

	return dto.ActivationStateResponse{
		QuizID:           quizID,
		IsLiveActive:     isLive,
		NotifiedStudents: len(enrollments),
	}, nil
}

// IsLive consults the transient state first and only falls back to the
// durable flag when no fresher signal exists.
func (s *activationService) IsLive(ctx context.Context, quizID uint, durableFlag bool) bool {
	if s.redis == nil {
		return durableFlag
	}
	value, err := s.redis.Get(ctx, activationKey(quizID)).Result()
	if err != nil {
		return durableFlag
	}
	return value == "1"
}

func (s *activationService) cacheState(ctx context.Context, quizID uint, isLive bool) {
	if s.redis == nil {
		return
	}
	value := "0"
	if isLive {
		value = "1"
	}
	if err := s.redis.Set(ctx, activationKey(quizID), value, s.stateTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("quiz_id", quizID).Msg("failed to cache activation state")
	}
}

func (s *activationService) recordActivity(ctx context.Context, professorID uint, action string, quizID uint) {
	if s.audit == nil {
		return
	}
	entityID := quizID
	entry := ActivityEntry{
		ActorID:    professorID,
		ActorRole:  "professor",
		Action:     action,
		EntityType: "quiz",
		EntityID:   &entityID,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record audit entry")
	}
}

func activationKey(quizID uint) string {
	return "quiz:live:" + strconv.FormatUint(uint64(quizID), 10)
}
