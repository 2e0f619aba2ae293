package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/service"
	"github.com/noah-isme/learnhub-api/internal/utils"
)

// EnrollmentHandler manages the caller's enrollments and lesson progress.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler builds an enrollment handler instance.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches enrollment routes.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Delete("/courses/:courseId", h.unenroll)
}

// RegisterLessons attaches lesson completion routes.
func (h *EnrollmentHandler) RegisterLessons(router fiber.Router) {
	router.Post("/:id/complete", h.completeLesson)
	router.Delete("/:id/complete", h.uncompleteLesson)
}

func (h *EnrollmentHandler) create(c *fiber.Ctx) error {
	var payload dto.EnrollmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.StudentID = userIDFromContext(c)

	enrollment, err := h.service.CreateEnrollment(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrollment ready", enrollment)
}

func (h *EnrollmentHandler) list(c *fiber.Ctx) error {
	enrollments, err := h.service.ListStudentEnrollments(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *EnrollmentHandler) unenroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}

	if err := h.service.UnEnroll(c.Context(), courseID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollment cancelled", nil)
}

func (h *EnrollmentHandler) completeLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}

	progress, err := h.service.MarkLessonCompleted(c.Context(), lessonID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson completed", progress)
}

func (h *EnrollmentHandler) uncompleteLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}

	progress, err := h.service.UncompleteLesson(c.Context(), lessonID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lesson marked incomplete", progress)
}

func (h *EnrollmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrEnrollmentNotFound),
		errors.Is(err, service.ErrLessonNotFound),
		errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("user_id", userIDFromContext(c)).Msg("enrollment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process enrollment request")
	}
}
