package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/service"
	"github.com/noah-isme/learnhub-api/internal/utils"
)

// CouponHandler serves coupon previews and coupon administration.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler constructs the handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("component", "coupon_handler").Logger(),
	}
}

// Register wires the student coupon routes.
func (h *CouponHandler) Register(router fiber.Router) {
	router.Post("/apply", h.apply)
}

// RegisterAdmin wires the coupon management routes.
func (h *CouponHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
}

func (h *CouponHandler) apply(c *fiber.Ctx) error {
	var payload dto.CouponApplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Preview(c.Context(), payload, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "coupon applied", result)
}

func (h *CouponHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.List(c.Context(), page, pageSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, result.Items, "coupons retrieved", result.Pagination)
}

func (h *CouponHandler) create(c *fiber.Ctx) error {
	var payload dto.CouponCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	coupon, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("coupon_code", coupon.Code).Str("admin_id", userIDFromContext(c)).Msg("coupon created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "coupon created", coupon)
}

func (h *CouponHandler) handleError(c *fiber.Ctx, err error) error {
	var rejection *service.CouponRejection
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.As(err, &rejection):
		return utils.SendError(c, fiber.StatusBadRequest, rejection.Reason)
	case errors.Is(err, service.ErrCouponDefinition):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCouponExists):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("coupon request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process coupon request")
	}
}
