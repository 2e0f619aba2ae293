package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
)

func TestCreateEnrollmentPaidCourseStartsPending(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 150, 2)

	enrollment := h.enroll(t, "student-1", course.ID)
	require.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.Zero(t, enrollment.Progress)
	require.Equal(t, course.Title, enrollment.CourseTitle)
	require.Zero(t, h.notifier.count())
}

func TestCreateEnrollmentFreeCourseSettlesImmediately(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 0, 1)

	enrollment := h.enroll(t, "student-1", course.ID)
	require.Equal(t, models.PaymentStatusSuccess, enrollment.PaymentStatus)
	require.Equal(t, models.PaymentStatusSuccess, h.reloadEnrollment(t, enrollment.ID).PaymentStatus)
	require.Equal(t, 1, h.notifier.count())

	_, err := h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{StudentID: "student-1", CourseID: course.ID})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.Equal(t, 1, h.notifier.count())
}

func TestCreateEnrollmentReturnsExistingPendingEnrollment(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 150, 1)

	first := h.enroll(t, "student-1", course.ID)
	second := h.enroll(t, "student-1", course.ID)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, h.db.Model(&models.Enrollment{}).Where("student_id = ? AND course_id = ?", "student-1", course.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateEnrollmentConcurrentRequestsKeepOneRow(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 150, 1)

	var wg sync.WaitGroup
	ids := make([]uint, 4)
	errs := make([]error, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{CourseID: course.ID, StudentID: "student-1"})
			ids[i], errs[i] = resp.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
}

func TestCreateEnrollmentRejectsPaidDuplicate(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 150, 1)
	enrollment := h.enroll(t, "student-1", course.ID)
	require.NoError(t, h.db.Model(&models.Enrollment{}).Where("id = ?", enrollment.ID).Update("payment_status", models.PaymentStatusSuccess).Error)

	_, err := h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{CourseID: course.ID, StudentID: "student-1"})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCreateEnrollmentValidatesInput(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{CourseID: 0, StudentID: "student-1"})
	require.Error(t, err)

	_, err = h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{CourseID: 999, StudentID: "student-1"})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestMarkLessonCompletedIsIdempotent(t *testing.T) {
	h := newServiceHarness(t)
	course, lessons := seedCourse(t, h.db, 0, 2)
	h.enroll(t, "student-1", course.ID)

	first, err := h.enrollments.MarkLessonCompleted(context.Background(), lessons[0].ID, "student-1")
	require.NoError(t, err)
	require.Equal(t, float64(50), first.Progress)

	second, err := h.enrollments.MarkLessonCompleted(context.Background(), lessons[0].ID, "student-1")
	require.NoError(t, err)
	require.Equal(t, float64(50), second.Progress)

	var count int64
	require.NoError(t, h.db.Model(&models.CompletedLesson{}).Where("student_id = ?", "student-1").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProgressCompletionIsOneWay(t *testing.T) {
	h := newServiceHarness(t)
	course, lessons := seedCourse(t, h.db, 0, 3)
	enrollment := h.enroll(t, "student-1", course.ID)
	ctx := context.Background()

	for _, lesson := range lessons {
		_, err := h.enrollments.MarkLessonCompleted(ctx, lesson.ID, "student-1")
		require.NoError(t, err)
	}

	stored := h.reloadEnrollment(t, enrollment.ID)
	require.Equal(t, float64(100), stored.Progress)
	require.Equal(t, models.EnrollmentStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletionDate)

	undone, err := h.enrollments.UncompleteLesson(ctx, lessons[2].ID, "student-1")
	require.NoError(t, err)
	require.Equal(t, float64(67), undone.Progress)
	require.Equal(t, models.EnrollmentStatusCompleted, undone.Status)

	listed, err := h.enrollments.ListStudentEnrollments(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, models.EnrollmentStatusActive, listed[0].Status)
}

func TestRecalculateProgressIsIdempotent(t *testing.T) {
	h := newServiceHarness(t)
	course, lessons := seedCourse(t, h.db, 0, 3)
	enrollment := h.enroll(t, "student-1", course.ID)
	ctx := context.Background()

	_, err := h.enrollments.MarkLessonCompleted(ctx, lessons[0].ID, "student-1")
	require.NoError(t, err)

	first, err := h.enrollments.RecalculateProgress(ctx, enrollment.ID)
	require.NoError(t, err)
	second, err := h.enrollments.RecalculateProgress(ctx, enrollment.ID)
	require.NoError(t, err)

	require.Equal(t, float64(33), first)
	require.Equal(t, first, second)
	require.Equal(t, first, h.reloadEnrollment(t, enrollment.ID).Progress)
}

func TestRecalculateProgressWithoutLessonsIsZero(t *testing.T) {
	h := newServiceHarness(t)
	course, _ := seedCourse(t, h.db, 0, 0)
	enrollment := h.enroll(t, "student-1", course.ID)

	progress, err := h.enrollments.RecalculateProgress(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Zero(t, progress)

	_, err = h.enrollments.RecalculateProgress(context.Background(), 999)
	require.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestMarkLessonCompletedRequiresLessonAndEnrollment(t *testing.T) {
	h := newServiceHarness(t)
	_, lessons := seedCourse(t, h.db, 0, 1)

	_, err := h.enrollments.MarkLessonCompleted(context.Background(), lessons[0].ID, "student-1")
	require.ErrorIs(t, err, ErrEnrollmentNotFound)

	_, err = h.enrollments.MarkLessonCompleted(context.Background(), 999, "student-1")
	require.ErrorIs(t, err, ErrLessonNotFound)
}

func TestUnEnrollOnlyCancelsPaidEnrollments(t *testing.T) {
	h := newServiceHarness(t)
	paidCourse, _ := seedCourse(t, h.db, 150, 1)
	h.enroll(t, "student-1", paidCourse.ID)

	err := h.enrollments.UnEnroll(context.Background(), paidCourse.ID, "student-1")
	require.ErrorIs(t, err, ErrNotEnrolled)

	freeCourse, _ := seedCourse(t, h.db, 0, 1)
	enrollment := h.enroll(t, "student-1", freeCourse.ID)
	require.NoError(t, h.enrollments.UnEnroll(context.Background(), freeCourse.ID, "student-1"))
	require.Equal(t, models.PaymentStatusCancelled, h.reloadEnrollment(t, enrollment.ID).PaymentStatus)

	listed, err := h.enrollments.ListStudentEnrollments(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, paidCourse.ID, listed[0].CourseID)

	renewed := h.enroll(t, "student-1", freeCourse.ID)
	require.NotEqual(t, enrollment.ID, renewed.ID)
}
