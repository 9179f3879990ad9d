package service

import "errors"

// Not-found conditions.
var (
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrOptionNotFound     = errors.New("option not found")
)

// Forbidden conditions.
var (
	// ErrNotEnrolled indicates the student is not actively enrolled in the quiz's class.
	ErrNotEnrolled = errors.New("student not enrolled in class")
	// ErrQuizNotLive indicates the quiz is not currently accepting new sessions.
	ErrQuizNotLive = errors.New("quiz is not live")
	// ErrDeadlinePassed indicates the quiz-level deadline has elapsed.
	ErrDeadlinePassed = errors.New("quiz deadline has passed")
	// ErrQuizTimeExpired indicates the attempt's time limit ran out before resume.
	ErrQuizTimeExpired = errors.New("quiz time limit expired")
	// ErrSubmissionCompleted rejects writes against an already-completed submission.
	ErrSubmissionCompleted = errors.New("submission already completed")
	// ErrNotQuizOwner indicates the acting professor does not own the quiz.
	ErrNotQuizOwner = errors.New("professor does not own quiz")
	// ErrNotSubmissionOwner indicates the caller does not own the submission.
	ErrNotSubmissionOwner = errors.New("submission belongs to another student")
)

// Conflict conditions.
var (
	// ErrAlreadyCompleted is returned to a caller that expected to cause
	// completion when the submission was already terminal. Internal idempotent
	// retries treat it as success.
	ErrAlreadyCompleted = errors.New("submission was already completed")
)

// Validation conditions.
var (
	// ErrQuestionNotInQuiz indicates the question does not belong to the submission's quiz.
	ErrQuestionNotInQuiz = errors.New("question does not belong to quiz")
	// ErrOptionNotInQuestion indicates the option does not belong to the question.
	ErrOptionNotInQuestion = errors.New("option does not belong to question")
)
