package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/classpulse/quiz-go-api/internal/models"
)

// EnrollmentRepository exposes the enrollment lookups the session core needs.
// Enrollment CRUD belongs to the class-management component.
type EnrollmentRepository interface {
	IsActivelyEnrolled(ctx context.Context, classID, studentID uint) (bool, error)
	ListActiveStudents(ctx context.Context, classID uint) ([]models.Enrollment, error)
	GetStudent(ctx context.Context, studentID uint) (models.Student, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) IsActivelyEnrolled(ctx context.Context, classID, studentID uint) (bool, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("student_id = ?", studentID).
		Where("status = ?", models.EnrollmentStatusActive).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *enrollmentRepository) ListActiveStudents(ctx context.Context, classID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ?", classID).
		Where("status = ?", models.EnrollmentStatusActive).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) GetStudent(ctx context.Context, studentID uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}
