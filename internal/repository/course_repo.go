package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CourseFilter describes pagination & search options for the catalog.
type CourseFilter struct {
	Search   string
	Page     int
	PageSize int
}

// CourseRepository defines read operations over courses, modules and lessons.
type CourseRepository interface {
	List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetWithContent(ctx context.Context, id uint) (models.Course, error)
	GetLessonCourseID(ctx context.Context, lessonID uint) (uint, error)
	CountPublishedLessons(ctx context.Context, courseID uint) (int64, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{}).Where("published = ?", true)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("published = ?", true).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) GetWithContent(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Where("published = ?", true).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("published = ?", true).Order("position ASC, id ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

// GetLessonCourseID resolves a published lesson to the course that owns it.
func (r *courseRepository) GetLessonCourseID(ctx context.Context, lessonID uint) (uint, error) {
	var row struct {
		CourseID uint
	}
	result := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Select("modules.course_id AS course_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.id = ? AND lessons.published = ?", lessonID, true).
		Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return row.CourseID, nil
}

func (r *courseRepository) CountPublishedLessons(ctx context.Context, courseID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ? AND lessons.published = ?", courseID, true).
		Count(&total).Error
	return total, err
}
