package dto

// ActivationToggleRequest flips a quiz's live availability.
type ActivationToggleRequest struct {
	IsLiveActive *bool `json:"is_live_active" validate:"required"`
}

// ActivationStateResponse reports the state after a toggle.
type ActivationStateResponse struct {
	QuizID           uint `json:"quiz_id"`
	IsLiveActive     bool `json:"is_live_active"`
	NotifiedStudents int  `json:"notified_students"`
}
