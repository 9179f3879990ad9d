package models

import "time"

// Class groups the students a professor teaches.
type Class struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	ProfessorID uint      `gorm:"not null;index" json:"professor_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Student mirrors the identity supplied by the authentication boundary; the
// row here only carries display data needed for live views.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// EnrollmentStatusActive marks a student currently enrolled in the class.
	EnrollmentStatusActive = "active"
	// EnrollmentStatusDropped marks a student who left the class.
	EnrollmentStatusDropped = "dropped"
)

// Enrollment links a student to a class.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_class_student" json:"class_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_class_student" json:"student_id"`
	Status    string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Student   Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsActive reports whether the enrollment currently grants quiz access.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
