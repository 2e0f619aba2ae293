package dto

import (
	"time"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CourseListRequest describes catalog filters.
type CourseListRequest struct {
	Page     int
	PageSize int
	Search   string
}

// CourseSummaryResponse is a catalog entry.
type CourseSummaryResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	IsFree      bool      `json:"is_free"`
	CreatedAt   time.Time `json:"created_at"`
}

// CourseListResponse wraps a paginated catalog page.
type CourseListResponse struct {
	Items      []CourseSummaryResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

// LessonResponse is a published lesson inside a module.
type LessonResponse struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ModuleResponse groups lessons.
type ModuleResponse struct {
	ID       uint             `json:"id"`
	Title    string           `json:"title"`
	Position int              `json:"position"`
	Lessons  []LessonResponse `json:"lessons"`
}

// CourseDetailResponse includes the course outline.
type CourseDetailResponse struct {
	CourseSummaryResponse
	TotalLessons int              `json:"total_lessons"`
	Modules      []ModuleResponse `json:"modules"`
}

// NewCourseSummaryResponse converts a course model into a catalog entry.
func NewCourseSummaryResponse(model models.Course) CourseSummaryResponse {
	return CourseSummaryResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Price:       model.Price,
		Currency:    model.Currency,
		IsFree:      model.IsFree(),
		CreatedAt:   model.CreatedAt,
	}
}

// NewCourseSummaryResponseSlice converts a slice of courses.
func NewCourseSummaryResponseSlice(items []models.Course) []CourseSummaryResponse {
	out := make([]CourseSummaryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCourseSummaryResponse(item))
	}
	return out
}

// NewCourseDetailResponse converts a course with preloaded modules and lessons.
func NewCourseDetailResponse(model models.Course) CourseDetailResponse {
	detail := CourseDetailResponse{
		CourseSummaryResponse: NewCourseSummaryResponse(model),
		Modules:               make([]ModuleResponse, 0, len(model.Modules)),
	}

	for _, module := range model.Modules {
		lessons := make([]LessonResponse, 0, len(module.Lessons))
		for _, lesson := range module.Lessons {
			lessons = append(lessons, LessonResponse{ID: lesson.ID, Title: lesson.Title, Position: lesson.Position})
		}
		detail.TotalLessons += len(lessons)
		detail.Modules = append(detail.Modules, ModuleResponse{
			ID:       module.ID,
			Title:    module.Title,
			Position: module.Position,
			Lessons:  lessons,
		})
	}

	return detail
}
