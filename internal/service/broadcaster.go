package service

import (
	"fmt"

	"github.com/classpulse/quiz-go-api/internal/dto"
)

// Broadcaster is the pub/sub capability injected into the session, answer, and
// activation services. Delivery is transient and at-most-once: implementations
// must never block the caller, and failures never roll back the state change
// that triggered the publish.
type Broadcaster interface {
	PublishToRoom(room string, event dto.LiveEvent)
	PublishToUser(userID string, event dto.LiveEvent)
}

// Room naming scheme shared by the hub and its publishers. Viewers join one of
// these scopes; publishers target them without knowing who is connected.
func QuizRoom(quizID uint) string      { return fmt.Sprintf("quiz:%d", quizID) }
func ClassRoom(classID uint) string    { return fmt.Sprintf("class:%d", classID) }
func ProfessorRoom(profID uint) string { return fmt.Sprintf("professor:%d", profID) }
func UserRoom(userID string) string    { return "user:" + userID }

// NopBroadcaster discards every event. It stands in where live fanout is not
// wired, e.g. in tests or one-off tooling.
type NopBroadcaster struct{}

func (NopBroadcaster) PublishToRoom(string, dto.LiveEvent) {}
func (NopBroadcaster) PublishToUser(string, dto.LiveEvent) {}
