package models

import "time"

// Enrollment status values.
const (
	EnrollmentStatusActive    = "Active"
	EnrollmentStatusCompleted = "Completed"
)

// Payment status values shared by enrollments and payments.
const (
	PaymentStatusPending   = "Pending"
	PaymentStatusSuccess   = "Success"
	PaymentStatusFailed    = "Failed"
	PaymentStatusCancelled = "Cancelled"
)

// Enrollment is a student's registration in a course. At most one row per
// (student, course) may be outside the Cancelled state.
type Enrollment struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudentID      string     `gorm:"size:64;not null;index;uniqueIndex:idx_enrollment_current,where:payment_status <> 'Cancelled'" json:"student_id"`
	CourseID       uint       `gorm:"not null;index;uniqueIndex:idx_enrollment_current,where:payment_status <> 'Cancelled'" json:"course_id"`
	EnrollmentDate time.Time  `gorm:"not null" json:"enrollment_date"`
	Status         string     `gorm:"size:16;not null;default:Active" json:"status"`
	PaymentStatus  string     `gorm:"size:16;not null;default:Pending;index" json:"payment_status"`
	Progress       float64    `gorm:"not null;default:0" json:"progress"`
	CompletionDate *time.Time `json:"completion_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Course         Course     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// IsPaid reports whether the enrollment grants access to the course.
func (e Enrollment) IsPaid() bool {
	return e.PaymentStatus == PaymentStatusSuccess
}

// DerivedStatus reconciles the stored status with the current progress.
func (e Enrollment) DerivedStatus() string {
	if e.Progress < 100 {
		return EnrollmentStatusActive
	}
	return EnrollmentStatusCompleted
}

// CompletedLesson records that a student finished a lesson inside an enrollment.
type CompletedLesson struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     string    `gorm:"size:64;not null;uniqueIndex:idx_completed_student_lesson" json:"student_id"`
	LessonID      uint      `gorm:"not null;uniqueIndex:idx_completed_student_lesson" json:"lesson_id"`
	EnrollmentID  uint      `gorm:"not null;index" json:"enrollment_id"`
	IsCompleted   bool      `gorm:"not null;default:true" json:"is_completed"`
	CompletedDate time.Time `gorm:"not null" json:"completed_date"`
}
