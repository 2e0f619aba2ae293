package handler

import (
	"bytes"
	"errors"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/service"
	"github.com/noah-isme/learnhub-api/internal/utils"
	"github.com/noah-isme/learnhub-api/pkg/paymob"
)

var paymentResultPage = template.Must(template.New("payment_result").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .CourseTitle}}<p>Course: {{.CourseTitle}}</p>{{end}}
{{if .Reference}}<p>Reference: {{.Reference}}</p>{{end}}
</body>
</html>`))

type paymentResultView struct {
	Title       string
	Message     string
	CourseTitle string
	Reference   string
}

// PaymentHandler exposes checkout and gateway callback endpoints.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("component", "payment_handler").Logger(),
	}
}

// Register wires the authenticated payment routes. guards run before every
// route; limiter, when set, additionally throttles checkout creation.
func (h *PaymentHandler) Register(router fiber.Router, limiter fiber.Handler, guards ...fiber.Handler) {
	create := append([]fiber.Handler{}, guards...)
	if limiter != nil {
		create = append(create, limiter)
	}
	router.Post("", append(create, h.create)...)
	router.Get("", append(append([]fiber.Handler{}, guards...), h.list)...)
}

// RegisterCallbacks wires the gateway callbacks, authenticated by HMAC only.
func (h *PaymentHandler) RegisterCallbacks(router fiber.Router) {
	router.Post("/callback", h.serverCallback)
	router.Get("/callback", h.redirectCallback)
}

func (h *PaymentHandler) create(c *fiber.Ctx) error {
	var payload dto.PaymentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.StudentID = userIDFromContext(c)

	result, err := h.service.RequestPayment(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if result.Payment == nil {
		return utils.SendSuccess(c, "enrollment settled without payment", result)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "payment requested", result)
}

func (h *PaymentHandler) list(c *fiber.Ctx) error {
	payments, err := h.service.ListPayments(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "payments retrieved", payments)
}

func (h *PaymentHandler) serverCallback(c *fiber.Ctx) error {
	ack, err := h.service.HandleServerCallback(c.Context(), c.Body(), c.Query("hmac"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid callback signature")
		case errors.Is(err, service.ErrInvalidCallback):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid callback payload")
		case errors.Is(err, service.ErrPaymentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("server callback processing failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to process callback")
		}
	}

	return utils.SendSuccess(c, "callback processed", ack)
}

func (h *PaymentHandler) redirectCallback(c *fiber.Ctx) error {
	fields := paymob.QueryFields(c.Queries())

	outcome, err := h.service.HandleRedirect(c.Context(), fields)
	if err != nil {
		view := paymentResultView{Title: "Payment could not be confirmed", Message: "We could not verify this payment. If you were charged, contact support with the reference below.", Reference: fields["order"]}
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			status = fiber.StatusUnauthorized
		case errors.Is(err, service.ErrPaymentNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, service.ErrInvalidCallback):
		default:
			status = fiber.StatusInternalServerError
			requestLogger(h.logger, c).Error().Err(err).Msg("redirect callback processing failed")
		}
		return h.renderResult(c, status, view)
	}

	view := paymentResultView{
		Title:       "Payment failed",
		Message:     "Your payment was declined. You can try again from your enrollments.",
		CourseTitle: outcome.Enrollment.CourseTitle,
		Reference:   outcome.TransactionID,
	}
	switch {
	case outcome.Pending:
		view.Title = "Payment processing"
		view.Message = "Your payment is still being processed. Your enrollment will update once it completes."
	case outcome.Succeeded:
		view.Title = "Payment successful"
		view.Message = "You are now enrolled. A confirmation email is on its way."
	}

	return h.renderResult(c, fiber.StatusOK, view)
}

func (h *PaymentHandler) renderResult(c *fiber.Ctx, status int, view paymentResultView) error {
	var buf bytes.Buffer
	if err := paymentResultPage.Execute(&buf, view); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render payment result page")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to render payment result")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

func (h *PaymentHandler) handleError(c *fiber.Ctx, err error) error {
	var rejection *service.CouponRejection
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.As(err, &rejection):
		return utils.SendError(c, fiber.StatusBadRequest, rejection.Reason)
	case errors.Is(err, service.ErrInvalidPaymentMethod), errors.Is(err, service.ErrWalletPhoneRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEnrollmentNotFound), errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGatewayUnavailable):
		requestLogger(h.logger, c).Warn().Err(err).Str("user_id", userIDFromContext(c)).Msg("checkout failed at gateway")
		return utils.SendError(c, fiber.StatusBadGateway, "payment gateway unavailable, please retry")
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("user_id", userIDFromContext(c)).Msg("payment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process payment request")
	}
}
