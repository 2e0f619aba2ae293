package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/observability"
	"github.com/noah-isme/learnhub-api/internal/repository"
)

var (
	// ErrAlreadyEnrolled indicates the student already paid for the course.
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	// ErrEnrollmentNotFound indicates there is no current enrollment to act on.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrLessonNotFound indicates the lesson does not exist or is unpublished.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrNotEnrolled is returned by UnEnroll when no paid enrollment exists.
	ErrNotEnrolled = errors.New("no paid enrollment for this course")
)

type lessonProgressInput struct {
	LessonID  uint   `validate:"required,gt=0"`
	StudentID string `validate:"required,max=64"`
}

// EnrollmentService manages enrollments and lesson progress.
type EnrollmentService interface {
	CreateEnrollment(ctx context.Context, payload dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error)
	MarkLessonCompleted(ctx context.Context, lessonID uint, studentID string) (dto.LessonProgressResponse, error)
	UncompleteLesson(ctx context.Context, lessonID uint, studentID string) (dto.LessonProgressResponse, error)
	RecalculateProgress(ctx context.Context, enrollmentID uint) (float64, error)
	ListStudentEnrollments(ctx context.Context, studentID string) ([]dto.EnrollmentResponse, error)
	UnEnroll(ctx context.Context, courseID uint, studentID string) error
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	settler     *freeEnrollmentSettler
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs the enrollment manager. notifier may be nil.
func NewEnrollmentService(enrollments repository.EnrollmentRepository, courses repository.CourseRepository, transactor repository.Transactor, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) EnrollmentService {
	serviceLogger := logger.With().Str("component", "enrollment_service").Logger()
	return &enrollmentService{
		enrollments: enrollments,
		courses:     courses,
		settler:     newFreeEnrollmentSettler(transactor, enrollments, nil, notifier, serviceLogger),
		validator:   validate,
		logger:      serviceLogger,
		now:         time.Now,
	}
}

func (s *enrollmentService) CreateEnrollment(ctx context.Context, payload dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if _, err := s.enrollments.FindPaid(ctx, payload.StudentID, payload.CourseID); err == nil {
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.EnrollmentResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, payload.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrCourseNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.Enrollment{
		StudentID:      payload.StudentID,
		CourseID:       course.ID,
		EnrollmentDate: s.now().UTC(),
		Status:         models.EnrollmentStatusActive,
		PaymentStatus:  models.PaymentStatusPending,
	}

	created, err := s.enrollments.CreateIfAbsent(ctx, &enrollment)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if created {
		observability.EnrollmentsCreated().WithLabelValues(paymentStatusLabel(course)).Inc()
		s.logger.Info().
			Uint("enrollment_id", enrollment.ID).
			Uint("course_id", course.ID).
			Str("student_id", enrollment.StudentID).
			Msg("enrollment created")
	} else {
		// Another request holds the current enrollment for this pair.
		existing, err := s.enrollments.FindCurrent(ctx, payload.StudentID, course.ID)
		if err != nil {
			return dto.EnrollmentResponse{}, fmt.Errorf("load concurrent enrollment: %w", err)
		}
		if existing.IsPaid() {
			return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
		}
		enrollment = existing
	}

	if course.IsFree() && !enrollment.IsPaid() {
		if err := s.settler.settle(ctx, &enrollment, course.Title, ""); err != nil {
			return dto.EnrollmentResponse{}, err
		}
	}

	enrollment.Course = course
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) MarkLessonCompleted(ctx context.Context, lessonID uint, studentID string) (dto.LessonProgressResponse, error) {
	enrollment, err := s.resolveLessonEnrollment(ctx, lessonID, studentID)
	if err != nil {
		return dto.LessonProgressResponse{}, err
	}

	inserted, err := s.enrollments.InsertCompletedLesson(ctx, &models.CompletedLesson{
		StudentID:     studentID,
		LessonID:      lessonID,
		EnrollmentID:  enrollment.ID,
		IsCompleted:   true,
		CompletedDate: s.now().UTC(),
	})
	if err != nil {
		return dto.LessonProgressResponse{}, err
	}
	if !inserted {
		s.logger.Debug().Uint("lesson_id", lessonID).Str("student_id", studentID).Msg("lesson already completed")
	}

	updated, err := s.recalculate(ctx, enrollment)
	if err != nil {
		return dto.LessonProgressResponse{}, err
	}

	return lessonProgress(lessonID, updated, true), nil
}

func (s *enrollmentService) UncompleteLesson(ctx context.Context, lessonID uint, studentID string) (dto.LessonProgressResponse, error) {
	enrollment, err := s.resolveLessonEnrollment(ctx, lessonID, studentID)
	if err != nil {
		return dto.LessonProgressResponse{}, err
	}

	if _, err := s.enrollments.DeleteCompletedLesson(ctx, studentID, lessonID); err != nil {
		return dto.LessonProgressResponse{}, err
	}

	updated, err := s.recalculate(ctx, enrollment)
	if err != nil {
		return dto.LessonProgressResponse{}, err
	}

	return lessonProgress(lessonID, updated, false), nil
}

func (s *enrollmentService) RecalculateProgress(ctx context.Context, enrollmentID uint) (float64, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrEnrollmentNotFound
		}
		return 0, err
	}

	updated, err := s.recalculate(ctx, enrollment)
	if err != nil {
		return 0, err
	}
	return updated.Progress, nil
}

// recalculate derives progress from completed published lessons. Reaching 100
// marks the enrollment Completed; dropping below 100 later does not revert it.
func (s *enrollmentService) recalculate(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	total, err := s.courses.CountPublishedLessons(ctx, enrollment.CourseID)
	if err != nil {
		return models.Enrollment{}, err
	}

	progress := 0.0
	if total > 0 {
		completed, err := s.enrollments.CountCompletedLessons(ctx, enrollment.StudentID, enrollment.CourseID)
		if err != nil {
			return models.Enrollment{}, err
		}
		progress = math.Round(float64(completed) / float64(total) * 100)
	}

	enrollment.Progress = progress
	if progress >= 100 && enrollment.Status != models.EnrollmentStatusCompleted {
		completedAt := s.now().UTC()
		enrollment.Status = models.EnrollmentStatusCompleted
		enrollment.CompletionDate = &completedAt
		s.logger.Info().Uint("enrollment_id", enrollment.ID).Msg("course completed")
	}

	if err := s.enrollments.SaveProgress(ctx, &enrollment); err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (s *enrollmentService) ListStudentEnrollments(ctx context.Context, studentID string) ([]dto.EnrollmentResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, errors.New("student id is required")
	}

	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewStudentEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) UnEnroll(ctx context.Context, courseID uint, studentID string) error {
	cancelled, err := s.enrollments.CancelPaid(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	if !cancelled {
		return ErrNotEnrolled
	}

	s.logger.Info().Uint("course_id", courseID).Str("student_id", studentID).Msg("enrollment cancelled")
	return nil
}

func (s *enrollmentService) resolveLessonEnrollment(ctx context.Context, lessonID uint, studentID string) (models.Enrollment, error) {
	if err := s.validator.Struct(lessonProgressInput{LessonID: lessonID, StudentID: studentID}); err != nil {
		return models.Enrollment{}, err
	}

	courseID, err := s.courses.GetLessonCourseID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrLessonNotFound
		}
		return models.Enrollment{}, err
	}

	enrollment, err := s.enrollments.FindCurrent(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrEnrollmentNotFound
		}
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func lessonProgress(lessonID uint, enrollment models.Enrollment, completed bool) dto.LessonProgressResponse {
	return dto.LessonProgressResponse{
		LessonID:     lessonID,
		EnrollmentID: enrollment.ID,
		Completed:    completed,
		Progress:     enrollment.Progress,
		Status:       enrollment.Status,
	}
}

func paymentStatusLabel(course models.Course) string {
	if course.IsFree() {
		return models.PaymentStatusSuccess
	}
	return models.PaymentStatusPending
}
