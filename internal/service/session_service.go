package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/models"
	"github.com/classpulse/quiz-go-api/internal/observability"
	"github.com/classpulse/quiz-go-api/internal/repository"
)

// SessionService owns the submission lifecycle: start/resume, answer intake,
// navigation, and the single terminal completion transition.
type SessionService interface {
	Start(ctx context.Context, quizID, studentID uint, sourceIP string) (dto.SessionStartResponse, error)
	SubmitAnswer(ctx context.Context, submissionID, studentID, questionID, optionID uint) (dto.AnswerAck, error)
	Navigate(ctx context.Context, submissionID, studentID, questionID uint) error
	// Complete is idempotent: the first caller computes and persists the
	// score; later callers get the stored result with ErrAlreadyCompleted.
	Complete(ctx context.Context, submissionID uint) (dto.SubmissionResultResponse, error)
	State(ctx context.Context, submissionID uint) (dto.SessionStateResponse, error)

	ExpiryHandler
}

// LiveStateReader answers whether a quiz accepts new sessions right now. The
// activation service implements it; the transient broadcastable state beats
// the durable flag, which is only eventually consistent.
type LiveStateReader interface {
	IsLive(ctx context.Context, quizID uint, durableFlag bool) bool
}

type sessionService struct {
	submissions repository.SubmissionRepository
	quizzes     repository.QuizRepository
	enrollments repository.EnrollmentRepository
	ledger      AnswerLedger
	scheduler   *TimerScheduler
	broadcaster Broadcaster
	liveState   LiveStateReader
	audit       ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time

	defaultQuestionTime time.Duration
}

// NewSessionService constructs the session service and registers it as the
// scheduler's expiry handler.
func NewSessionService(
	submissions repository.SubmissionRepository,
	quizzes repository.QuizRepository,
	enrollments repository.EnrollmentRepository,
	ledger AnswerLedger,
	scheduler *TimerScheduler,
	broadcaster Broadcaster,
	liveState LiveStateReader,
	audit ActivityRecorder,
	defaultQuestionTime time.Duration,
	logger zerolog.Logger,
) SessionService {
	svc := &sessionService{
		submissions:         submissions,
		quizzes:             quizzes,
		enrollments:         enrollments,
		ledger:              ledger,
		scheduler:           scheduler,
		broadcaster:         broadcaster,
		liveState:           liveState,
		audit:               audit,
		logger:              logger.With().Str("component", "session_service").Logger(),
		now:                 time.Now,
		defaultQuestionTime: defaultQuestionTime,
	}
	scheduler.SetHandler(svc)
	return svc
}

func (s *sessionService) Start(ctx context.Context, quizID, studentID uint, sourceIP string) (dto.SessionStartResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionStartResponse{}, ErrQuizNotFound
		}
		return dto.SessionStartResponse{}, err
	}

	if _, err := s.submissions.GetCompleted(ctx, quizID, studentID); err == nil {
		return dto.SessionStartResponse{}, ErrAlreadyCompleted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SessionStartResponse{}, err
	}

	if existing, err := s.submissions.GetIncomplete(ctx, quizID, studentID); err == nil {
		return s.resume(ctx, quiz, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SessionStartResponse{}, err
	}

	if !s.liveState.IsLive(ctx, quiz.ID, quiz.IsLiveActive) {
		return dto.SessionStartResponse{}, ErrQuizNotLive
	}
	if quiz.Deadline != nil && s.now().After(*quiz.Deadline) {
		return dto.SessionStartResponse{}, ErrDeadlinePassed
	}
	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, quiz.ClassID, studentID)
	if err != nil {
		return dto.SessionStartResponse{}, err
	}
	if !enrolled {
		return dto.SessionStartResponse{}, ErrNotEnrolled
	}

	submission := models.Submission{
		QuizID:    quizID,
		StudentID: studentID,
		StartedAt: s.now().UTC(),
		SourceIP:  sourceIP,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		// Duplicate insert means another request won the race; retry as resume.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, getErr := s.submissions.GetIncomplete(ctx, quizID, studentID)
			if getErr != nil {
				return dto.SessionStartResponse{}, getErr
			}
			return s.resume(ctx, quiz, existing)
		}
		return dto.SessionStartResponse{}, err
	}

	timers := s.questionTimers(quiz)
	s.scheduler.StartSession(submission.ID, timers)
	observability.SessionsStarted().Inc()

	s.recordActivity(ctx, studentID, models.ActivityActionSessionStarted, submission.ID, map[string]interface{}{
		"quiz_id":   quiz.ID,
		"source_ip": sourceIP,
	})

	current := uint(0)
	if len(timers) > 0 {
		current = timers[0].QuestionID
	}

	return dto.SessionStartResponse{
		SubmissionID:         submission.ID,
		QuizID:               quiz.ID,
		StartedAt:            submission.StartedAt,
		TimeRemainingSeconds: quiz.TimeLimitMinutes * 60,
		CurrentQuestionID:    current,
		QuestionCount:        len(timers),
	}, nil
}

// resume returns an in-flight attempt, auto-expiring it when the quiz-level
// wall clock ran out while the student was away.
func (s *sessionService) resume(ctx context.Context, quiz models.Quiz, submission models.Submission) (dto.SessionStartResponse, error) {
	limit := time.Duration(quiz.TimeLimitMinutes) * time.Minute
	elapsed := submission.Elapsed(s.now())
	if limit > 0 && elapsed >= limit {
		if _, err := s.Complete(ctx, submission.ID); err != nil && !errors.Is(err, ErrAlreadyCompleted) {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("auto-expire completion failed")
		}
		return dto.SessionStartResponse{}, ErrQuizTimeExpired
	}

	timers := s.questionTimers(quiz)
	current, tracked := s.scheduler.CurrentQuestion(submission.ID)
	if !tracked {
		// Not tracked in this process (restart or first resume); re-arm from
		// the first question with a fresh full-duration timer.
		s.scheduler.StartSession(submission.ID, timers)
		current, _ = s.scheduler.CurrentQuestion(submission.ID)
	}

	s.recordActivity(ctx, submission.StudentID, models.ActivityActionSessionResumed, submission.ID, map[string]interface{}{
		"quiz_id": quiz.ID,
	})

	remaining := limit - elapsed
	if limit <= 0 {
		remaining = 0
	}

	return dto.SessionStartResponse{
		SubmissionID:         submission.ID,
		QuizID:               quiz.ID,
		StartedAt:            submission.StartedAt,
		Resumed:              true,
		TimeRemainingSeconds: int(remaining / time.Second),
		CurrentQuestionID:    current,
		QuestionCount:        len(timers),
	}, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, submissionID, studentID, questionID, optionID uint) (dto.AnswerAck, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerAck{}, ErrSubmissionNotFound
		}
		return dto.AnswerAck{}, err
	}
	if submission.StudentID != studentID {
		return dto.AnswerAck{}, ErrNotSubmissionOwner
	}

	answer, err := s.ledger.Record(ctx, submissionID, questionID, optionID, false)
	if err != nil {
		return dto.AnswerAck{}, err
	}

	s.scheduler.NoteSelection(submissionID, questionID, optionID)

	return dto.AnswerAck{
		SubmissionID: submissionID,
		QuestionID:   questionID,
		OptionID:     optionID,
		AnsweredAt:   answer.AnsweredAt,
	}, nil
}

func (s *sessionService) Navigate(ctx context.Context, submissionID, studentID, questionID uint) error {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	if submission.StudentID != studentID {
		return ErrNotSubmissionOwner
	}
	if submission.IsCompleted {
		return ErrSubmissionCompleted
	}

	return s.scheduler.Navigate(submissionID, questionID)
}

func (s *sessionService) Complete(ctx context.Context, submissionID uint) (dto.SubmissionResultResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResultResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResultResponse{}, err
	}
	if submission.IsCompleted {
		return s.resultOf(submission), ErrAlreadyCompleted
	}

	quiz, err := s.quizzes.GetByID(ctx, submission.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResultResponse{}, ErrQuizNotFound
		}
		return dto.SubmissionResultResponse{}, err
	}

	answers, err := s.submissions.ListAnswers(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}

	score := ComputeScore(quiz.Questions, answers)
	completedAt := s.now().UTC()
	timeTaken := int(math.Round(completedAt.Sub(submission.StartedAt).Minutes()))

	flipped, err := s.submissions.MarkCompleted(ctx, submissionID, repository.CompletionUpdate{
		SubmittedAt:      completedAt,
		TotalScore:       score.TotalScore,
		MaxScore:         score.MaxScore,
		TimeTakenMinutes: timeTaken,
	})
	if err != nil {
		return dto.SubmissionResultResponse{}, err
	}
	if !flipped {
		// Lost the terminal-write race; the stored result is authoritative.
		stored, getErr := s.submissions.GetByID(ctx, submissionID)
		if getErr != nil {
			return dto.SubmissionResultResponse{}, getErr
		}
		return s.resultOf(stored), ErrAlreadyCompleted
	}

	s.scheduler.EndSession(submissionID)
	observability.SessionsCompleted().Inc()

	submission.SubmittedAt = &completedAt
	submission.IsCompleted = true
	submission.TotalScore = score.TotalScore
	submission.MaxScore = score.MaxScore
	submission.TimeTakenMinutes = timeTaken

	s.recordActivity(ctx, submission.StudentID, models.ActivityActionSessionCompleted, submission.ID, map[string]interface{}{
		"quiz_id":     quiz.ID,
		"total_score": score.TotalScore,
		"max_score":   score.MaxScore,
	})

	event := dto.NewLiveEvent(dto.EventSubmissionCompleted, dto.CompletionPayload{
		QuizID:       quiz.ID,
		SubmissionID: submission.ID,
		StudentID:    submission.StudentID,
		TotalScore:   score.TotalScore,
		MaxScore:     score.MaxScore,
		Percentage:   score.Percentage,
		CompletedAt:  completedAt,
	})
	if event.Type != "" {
		s.broadcaster.PublishToRoom(QuizRoom(quiz.ID), event)
		s.broadcaster.PublishToRoom(ProfessorRoom(quiz.ProfessorID), event)
		observability.LiveEventsPublished().WithLabelValues(dto.EventSubmissionCompleted).Inc()
	}

	return s.resultOf(submission), nil
}

func (s *sessionService) State(ctx context.Context, submissionID uint) (dto.SessionStateResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionStateResponse{}, ErrSubmissionNotFound
		}
		return dto.SessionStateResponse{}, err
	}

	answers, err := s.submissions.ListAnswers(ctx, submissionID)
	if err != nil {
		return dto.SessionStateResponse{}, err
	}

	return dto.SessionStateResponse{
		SubmissionID: submission.ID,
		QuizID:       submission.QuizID,
		StudentID:    submission.StudentID,
		StartedAt:    submission.StartedAt,
		SubmittedAt:  submission.SubmittedAt,
		IsCompleted:  submission.IsCompleted,
		TotalScore:   submission.TotalScore,
		MaxScore:     submission.MaxScore,
		Answered:     len(answers),
	}, nil
}

// RecordExpiredAnswer re-records the in-memory selection with the expiry flag.
// A submission completed through another path rejects the write; that is the
// expected outcome of the race, not a failure.
func (s *sessionService) RecordExpiredAnswer(ctx context.Context, submissionID, questionID, optionID uint) {
	if _, err := s.ledger.Record(ctx, submissionID, questionID, optionID, true); err != nil {
		if errors.Is(err, ErrSubmissionCompleted) {
			return
		}
		s.logger.Error().Err(err).
			Uint("submission_id", submissionID).
			Uint("question_id", questionID).
			Msg("failed to record expired answer")
	}
}

// CompleteExpired finishes a submission whose last question timed out. Errors
// are logged and the session stays in its last consistent state for manual
// follow-up; it is never force-completed with a partial score.
func (s *sessionService) CompleteExpired(ctx context.Context, submissionID uint) {
	if _, err := s.Complete(ctx, submissionID); err != nil && !errors.Is(err, ErrAlreadyCompleted) {
		s.logger.Error().Err(err).
			Uint("submission_id", submissionID).
			Msg("timer-driven completion failed")
	}
}

func (s *sessionService) questionTimers(quiz models.Quiz) []QuestionTimer {
	timers := make([]QuestionTimer, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		duration := time.Duration(question.TimeLimitSeconds) * time.Second
		if duration <= 0 {
			duration = time.Duration(quiz.DefaultQuestionSeconds) * time.Second
		}
		if duration <= 0 {
			duration = s.defaultQuestionTime
		}
		timers = append(timers, QuestionTimer{QuestionID: question.ID, Duration: duration})
	}
	return timers
}

func (s *sessionService) resultOf(submission models.Submission) dto.SubmissionResultResponse {
	percentage := 0
	if submission.MaxScore > 0 {
		percentage = int(math.Round(float64(submission.TotalScore) / float64(submission.MaxScore) * 100))
	}
	return dto.SubmissionResultResponse{
		SubmissionID:     submission.ID,
		QuizID:           submission.QuizID,
		StudentID:        submission.StudentID,
		TotalScore:       submission.TotalScore,
		MaxScore:         submission.MaxScore,
		Percentage:       percentage,
		TimeTakenMinutes: submission.TimeTakenMinutes,
		SubmittedAt:      submission.SubmittedAt,
	}
}

func (s *sessionService) recordActivity(ctx context.Context, actorID uint, action string, submissionID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entityID := submissionID
	entry := ActivityEntry{
		ActorID:    actorID,
		ActorRole:  "student",
		Action:     action,
		EntityType: "submission",
		EntityID:   &entityID,
		Metadata:   metadata,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record audit entry")
	}
}
