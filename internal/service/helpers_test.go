package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/dto"
	"github.com/classpulse/quiz-go-api/internal/models"
	"github.com/classpulse/quiz-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// memSubmissionRepo mimics the persistent store including the partial unique
// constraint on incomplete attempts and rows-affected completion semantics.
type memSubmissionRepo struct {
	mu          sync.Mutex
	nextID      uint
	submissions map[uint]models.Submission
	answers     map[uint]map[uint]models.AnswerRecord
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{
		nextID:      1,
		submissions: make(map[uint]models.Submission),
		answers:     make(map[uint]map[uint]models.AnswerRecord),
	}
}

func (r *memSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.submissions {
		if existing.QuizID == submission.QuizID && existing.StudentID == submission.StudentID && !existing.IsCompleted {
			return gorm.ErrDuplicatedKey
		}
	}
	submission.ID = r.nextID
	r.nextID++
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *memSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *memSubmissionRepo) GetIncomplete(ctx context.Context, quizID, studentID uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, submission := range r.submissions {
		if submission.QuizID == quizID && submission.StudentID == studentID && !submission.IsCompleted {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (r *memSubmissionRepo) GetCompleted(ctx context.Context, quizID, studentID uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, submission := range r.submissions {
		if submission.QuizID == quizID && submission.StudentID == studentID && submission.IsCompleted {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (r *memSubmissionRepo) MarkCompleted(ctx context.Context, id uint, update repository.CompletionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok || submission.IsCompleted {
		return false, nil
	}
	submittedAt := update.SubmittedAt
	submission.IsCompleted = true
	submission.SubmittedAt = &submittedAt
	submission.TotalScore = update.TotalScore
	submission.MaxScore = update.MaxScore
	submission.TimeTakenMinutes = update.TimeTakenMinutes
	r.submissions[id] = submission
	return true, nil
}

func (r *memSubmissionRepo) UpsertAnswer(ctx context.Context, answer *models.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots, ok := r.answers[answer.SubmissionID]
	if !ok {
		slots = make(map[uint]models.AnswerRecord)
		r.answers[answer.SubmissionID] = slots
	}
	slots[answer.QuestionID] = *answer
	return nil
}

func (r *memSubmissionRepo) ListAnswers(ctx context.Context, submissionID uint) ([]models.AnswerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]models.AnswerRecord, 0, len(r.answers[submissionID]))
	for _, answer := range r.answers[submissionID] {
		records = append(records, answer)
	}
	return records, nil
}

type memQuizRepo struct {
	mu      sync.Mutex
	quizzes map[uint]models.Quiz
}

func newMemQuizRepo(quizzes ...models.Quiz) *memQuizRepo {
	repo := &memQuizRepo{quizzes: make(map[uint]models.Quiz)}
	for _, quiz := range quizzes {
		repo.quizzes[quiz.ID] = quiz
	}
	return repo
}

func (r *memQuizRepo) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (r *memQuizRepo) SetLiveActive(ctx context.Context, id uint, isLive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quiz.IsLiveActive = isLive
	r.quizzes[id] = quiz
	return nil
}

type memEnrollmentRepo struct {
	enrollments []models.Enrollment
	students    map[uint]models.Student
}

func (r *memEnrollmentRepo) IsActivelyEnrolled(ctx context.Context, classID, studentID uint) (bool, error) {
	for _, enrollment := range r.enrollments {
		if enrollment.ClassID == classID && enrollment.StudentID == studentID && enrollment.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memEnrollmentRepo) ListActiveStudents(ctx context.Context, classID uint) ([]models.Enrollment, error) {
	active := make([]models.Enrollment, 0)
	for _, enrollment := range r.enrollments {
		if enrollment.ClassID == classID && enrollment.IsActive() {
			active = append(active, enrollment)
		}
	}
	return active, nil
}

func (r *memEnrollmentRepo) GetStudent(ctx context.Context, studentID uint) (models.Student, error) {
	if student, ok := r.students[studentID]; ok {
		return student, nil
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

type publishedEvent struct {
	Room   string
	UserID string
	Event  dto.LiveEvent
}

type captureBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *captureBroadcaster) PublishToRoom(room string, event dto.LiveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Room: room, Event: event})
}

func (b *captureBroadcaster) PublishToUser(userID string, event dto.LiveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{UserID: userID, Event: event})
}

func (b *captureBroadcaster) byType(eventType string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := make([]publishedEvent, 0)
	for _, event := range b.events {
		if event.Event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *stubActivityRecorder) Record(ctx context.Context, entry ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type liveStateStub struct {
	live bool
}

func (s liveStateStub) IsLive(ctx context.Context, quizID uint, durableFlag bool) bool {
	return s.live
}

func twoQuestionQuiz() models.Quiz {
	return models.Quiz{
		ID:               10,
		ClassID:          1,
		ProfessorID:      7,
		Title:            "Networking basics",
		TimeLimitMinutes: 30,
		IsLiveActive:     true,
		Questions: []models.Question{
			{
				ID: 100, QuizID: 10, Text: "What does TCP stand for?", Points: 2, TimeLimitSeconds: 20, Position: 0,
				Options: []models.Option{
					{ID: 1000, QuestionID: 100, Text: "Transmission Control Protocol", IsCorrect: true},
					{ID: 1001, QuestionID: 100, Text: "Transfer Copy Protocol"},
				},
			},
			{
				ID: 101, QuizID: 10, Text: "Default HTTPS port?", Points: 3, TimeLimitSeconds: 20, Position: 1,
				Options: []models.Option{
					{ID: 1002, QuestionID: 101, Text: "443", IsCorrect: true},
					{ID: 1003, QuestionID: 101, Text: "8080"},
				},
			},
		},
	}
}

func activeEnrollment(classID, studentID uint, name string) models.Enrollment {
	return models.Enrollment{
		ClassID:   classID,
		StudentID: studentID,
		Status:    models.EnrollmentStatusActive,
		Student:   models.Student{ID: studentID, Name: name},
	}
}
