package service

import (
	"math"

	"github.com/classpulse/quiz-go-api/internal/models"
)

// ScoreResult is the outcome of scoring one submission.
type ScoreResult struct {
	TotalScore int
	MaxScore   int
	Percentage int
}

// ComputeScore grades a submission against the quiz's current question set.
//
// It is deterministic and side-effect-free so the completion path can call it
// idempotently. MaxScore counts every question still belonging to the quiz,
// answered or not; an orphaned answer whose question was removed after the
// attempt began contributes nothing to either total.
func ComputeScore(questions []models.Question, answers []models.AnswerRecord) ScoreResult {
	answersByQuestion := make(map[uint]models.AnswerRecord, len(answers))
	for _, answer := range answers {
		answersByQuestion[answer.QuestionID] = answer
	}

	result := ScoreResult{}
	for _, question := range questions {
		points := question.PointsOrDefault()
		result.MaxScore += points
		if answer, ok := answersByQuestion[question.ID]; ok && answer.IsCorrect {
			result.TotalScore += points
		}
	}

	if result.MaxScore > 0 {
		result.Percentage = int(math.Round(float64(result.TotalScore) / float64(result.MaxScore) * 100))
	}
	return result
}
