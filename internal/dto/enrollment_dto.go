package dto

import (
	"time"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// EnrollmentCreateRequest is the payload to enroll the caller in a course.
type EnrollmentCreateRequest struct {
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	StudentID string `json:"-" validate:"required,max=64"`
}

// EnrollmentResponse describes an enrollment returned to clients.
type EnrollmentResponse struct {
	ID             uint       `json:"id"`
	StudentID      string     `json:"student_id"`
	CourseID       uint       `json:"course_id"`
	CourseTitle    string     `json:"course_title,omitempty"`
	EnrollmentDate time.Time  `json:"enrollment_date"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	Progress       float64    `json:"progress"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// LessonProgressResponse reports the outcome of toggling a lesson.
type LessonProgressResponse struct {
	LessonID     uint    `json:"lesson_id"`
	EnrollmentID uint    `json:"enrollment_id"`
	Completed    bool    `json:"completed"`
	Progress     float64 `json:"progress"`
	Status       string  `json:"status"`
}

// NewEnrollmentResponse converts an enrollment model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:             model.ID,
		StudentID:      model.StudentID,
		CourseID:       model.CourseID,
		CourseTitle:    model.Course.Title,
		EnrollmentDate: model.EnrollmentDate,
		Status:         model.Status,
		PaymentStatus:  model.PaymentStatus,
		Progress:       model.Progress,
		CompletionDate: model.CompletionDate,
	}
}

// NewStudentEnrollmentResponseSlice converts listings, deriving the status from progress.
func NewStudentEnrollmentResponseSlice(items []models.Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(items))
	for _, item := range items {
		response := NewEnrollmentResponse(item)
		response.Status = item.DerivedStatus()
		out = append(out, response)
	}
	return out
}
