package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/repository"
)

// ErrCourseNotFound indicates the course does not exist or is not published.
var ErrCourseNotFound = errors.New("course not found")

// CourseService exposes the public catalog.
type CourseService interface {
	List(ctx context.Context, req dto.CourseListRequest) (dto.CourseListResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseDetailResponse, error)
}

type courseService struct {
	repo   repository.CourseRepository
	logger zerolog.Logger
}

// NewCourseService builds the catalog service.
func NewCourseService(repo repository.CourseRepository, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:   repo,
		logger: logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) List(ctx context.Context, req dto.CourseListRequest) (dto.CourseListResponse, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	courses, total, err := s.repo.List(ctx, repository.CourseFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.CourseListResponse{}, err
	}

	return dto.CourseListResponse{
		Items:      dto.NewCourseSummaryResponseSlice(courses),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseDetailResponse, error) {
	course, err := s.repo.GetWithContent(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseDetailResponse{}, ErrCourseNotFound
		}
		return dto.CourseDetailResponse{}, err
	}

	return dto.NewCourseDetailResponse(course), nil
}
