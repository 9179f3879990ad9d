package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/classpulse/quiz-go-api/internal/models"
)

func TestActivityLogListFiltersAndPages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	entityID := uint(901)
	entries := []models.ActivityLog{
		{ActorID: 501, ActorRole: "professor", Action: models.ActivityActionQuizActivated, EntityType: "quiz", EntityID: &entityID},
		{ActorID: 502, ActorRole: "student", Action: models.ActivityActionSessionStarted, EntityType: "submission",
			Metadata: datatypes.JSONMap{"quiz_id": float64(901)}},
		{ActorID: 502, ActorRole: "student", Action: models.ActivityActionSessionCompleted, EntityType: "submission"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	byAction, total, err := repo.List(ctx, ActivityLogFilter{Action: models.ActivityActionQuizActivated, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, byAction, 1)
	require.Equal(t, uint(501), byAction[0].ActorID)

	actor := uint(502)
	byActor, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actor, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, byActor, 2)

	paged, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actor, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
}

func TestEnrollmentLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	student := models.Student{ID: 601, Name: "Dewi Lestari", Email: "dewi-601@example.com"}
	require.NoError(t, db.Create(&student).Error)
	dropped := models.Student{ID: 602, Name: "Bagus Putra", Email: "bagus-602@example.com"}
	require.NoError(t, db.Create(&dropped).Error)

	require.NoError(t, db.Create(&models.Enrollment{ClassID: 61, StudentID: 601, Status: models.EnrollmentStatusActive}).Error)
	require.NoError(t, db.Create(&models.Enrollment{ClassID: 61, StudentID: 602, Status: models.EnrollmentStatusDropped}).Error)

	enrolled, err := repo.IsActivelyEnrolled(ctx, 61, 601)
	require.NoError(t, err)
	require.True(t, enrolled)

	enrolled, err = repo.IsActivelyEnrolled(ctx, 61, 602)
	require.NoError(t, err)
	require.False(t, enrolled)

	active, err := repo.ListActiveStudents(ctx, 61)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Dewi Lestari", active[0].Student.Name)

	found, err := repo.GetStudent(ctx, 601)
	require.NoError(t, err)
	require.Equal(t, "Dewi Lestari", found.Name)
}
