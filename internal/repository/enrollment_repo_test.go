package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

func newPendingEnrollment(studentID string, courseID uint) *models.Enrollment {
	return &models.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: time.Now(),
		Status:         models.EnrollmentStatusActive,
		PaymentStatus:  models.PaymentStatusPending,
	}
}

func TestEnrollmentRepositoryCreateIfAbsentKeepsSingleCurrentRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	fixture := seedCourse(t, db, 100, 1)

	created, err := repo.CreateIfAbsent(ctx, newPendingEnrollment("s1", fixture.Course.ID))
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, newPendingEnrollment("s1", fixture.Course.ID))
	require.NoError(t, err)
	require.False(t, created, "second insert should be ignored")

	var total int64
	require.NoError(t, db.Model(&models.Enrollment{}).Count(&total).Error)
	require.Equal(t, int64(1), total)

	current, err := repo.FindCurrent(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, current.PaymentStatus)

	_, err = repo.FindPaid(ctx, "s1", fixture.Course.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnrollmentRepositoryCancelPaidRetainsRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	fixture := seedCourse(t, db, 100, 1)

	enrollment := newPendingEnrollment("s1", fixture.Course.ID)
	_, err := repo.CreateIfAbsent(ctx, enrollment)
	require.NoError(t, err)

	cancelled, err := repo.CancelPaid(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.False(t, cancelled, "pending enrollments cannot be cancelled")

	settled, err := repo.SettleUnpaid(ctx, enrollment.ID)
	require.NoError(t, err)
	require.True(t, settled)

	settled, err = repo.SettleUnpaid(ctx, enrollment.ID)
	require.NoError(t, err)
	require.False(t, settled, "already paid")

	cancelled, err = repo.CancelPaid(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.True(t, cancelled)

	stored, err := repo.GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusCancelled, stored.PaymentStatus)

	created, err := repo.CreateIfAbsent(ctx, newPendingEnrollment("s1", fixture.Course.ID))
	require.NoError(t, err)
	require.True(t, created, "a cancelled enrollment must not block re-enrolling")

	listed, err := repo.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, fixture.Course.Title, listed[0].Course.Title)
}

func TestEnrollmentRepositoryCompletedLessonsAreUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	fixture := seedCourse(t, db, 100, 3)

	enrollment := newPendingEnrollment("s1", fixture.Course.ID)
	_, err := repo.CreateIfAbsent(ctx, enrollment)
	require.NoError(t, err)

	lesson := fixture.Lessons[0]
	for i := 0; i < 2; i++ {
		_, err := repo.InsertCompletedLesson(ctx, &models.CompletedLesson{
			StudentID:     "s1",
			LessonID:      lesson.ID,
			EnrollmentID:  enrollment.ID,
			IsCompleted:   true,
			CompletedDate: time.Now(),
		})
		require.NoError(t, err)
	}

	count, err := repo.CountCompletedLessons(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	removed, err := repo.DeleteCompletedLesson(ctx, "s1", lesson.ID)
	require.NoError(t, err)
	require.True(t, removed)

	count, err = repo.CountCompletedLessons(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestEnrollmentRepositoryCountIgnoresUnpublishedLessons(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	fixture := seedCourse(t, db, 100, 2)

	enrollment := newPendingEnrollment("s1", fixture.Course.ID)
	_, err := repo.CreateIfAbsent(ctx, enrollment)
	require.NoError(t, err)

	for _, lesson := range fixture.Lessons {
		_, err := repo.InsertCompletedLesson(ctx, &models.CompletedLesson{StudentID: "s1", LessonID: lesson.ID, EnrollmentID: enrollment.ID, IsCompleted: true, CompletedDate: time.Now()})
		require.NoError(t, err)
	}

	require.NoError(t, db.Delete(&fixture.Lessons[1]).Error)

	count, err := repo.CountCompletedLessons(ctx, "s1", fixture.Course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	total, err := NewCourseRepository(db).CountPublishedLessons(ctx, fixture.Course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}
