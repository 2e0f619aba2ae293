package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// EnrollmentRepository defines persistence operations for enrollments and lesson completion.
type EnrollmentRepository interface {
	WithTx(tx *gorm.DB) EnrollmentRepository
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	FindCurrent(ctx context.Context, studentID string, courseID uint) (models.Enrollment, error)
	FindPaid(ctx context.Context, studentID string, courseID uint) (models.Enrollment, error)
	CreateIfAbsent(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	UpdatePaymentStatus(ctx context.Context, id uint, status string) error
	SettleUnpaid(ctx context.Context, id uint) (bool, error)
	FailPending(ctx context.Context, id uint) (bool, error)
	SaveProgress(ctx context.Context, enrollment *models.Enrollment) error
	CancelPaid(ctx context.Context, studentID string, courseID uint) (bool, error)
	InsertCompletedLesson(ctx context.Context, completed *models.CompletedLesson) (bool, error)
	DeleteCompletedLesson(ctx context.Context, studentID string, lessonID uint) (bool, error)
	CountCompletedLessons(ctx context.Context, studentID string, courseID uint) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) WithTx(tx *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: tx}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) FindCurrent(ctx context.Context, studentID string, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Where("payment_status <> ?", models.PaymentStatusCancelled).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) FindPaid(ctx context.Context, studentID string, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND payment_status = ?", studentID, courseID, models.PaymentStatusSuccess).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

// CreateIfAbsent inserts the enrollment unless a non-cancelled one already
// exists for the same student and course. It reports whether a row was written.
func (r *enrollmentRepository) CreateIfAbsent(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(enrollment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ? AND payment_status <> ?", studentID, models.PaymentStatusCancelled).
		Order("enrollment_date DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) UpdatePaymentStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"payment_status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SettleUnpaid marks a Pending or Failed enrollment as paid. It reports false
// when the enrollment was already settled or cancelled.
func (r *enrollmentRepository) SettleUnpaid(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND payment_status IN ?", id, []string{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Updates(map[string]interface{}{"payment_status": models.PaymentStatusSuccess, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FailPending records a declined payment on an enrollment still awaiting one.
func (r *enrollmentRepository) FailPending(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{"payment_status": models.PaymentStatusFailed, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepository) SaveProgress(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Updates(map[string]interface{}{
			"progress":        enrollment.Progress,
			"status":          enrollment.Status,
			"completion_date": enrollment.CompletionDate,
			"updated_at":      time.Now(),
		}).Error
}

// CancelPaid moves a paid enrollment to Cancelled, keeping the row for history.
func (r *enrollmentRepository) CancelPaid(ctx context.Context, studentID string, courseID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND payment_status = ?", studentID, courseID, models.PaymentStatusSuccess).
		Updates(map[string]interface{}{"payment_status": models.PaymentStatusCancelled, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepository) InsertCompletedLesson(ctx context.Context, completed *models.CompletedLesson) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(completed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepository) DeleteCompletedLesson(ctx context.Context, studentID string, lessonID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		Delete(&models.CompletedLesson{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountCompletedLessons counts completions on lessons that are still published.
func (r *enrollmentRepository) CountCompletedLessons(ctx context.Context, studentID string, courseID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.CompletedLesson{}).
		Joins("JOIN lessons ON lessons.id = completed_lessons.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("completed_lessons.student_id = ? AND modules.course_id = ?", studentID, courseID).
		Where("lessons.published = ? AND lessons.deleted_at IS NULL", true).
		Count(&total).Error
	return total, err
}
