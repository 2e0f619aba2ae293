package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/observability"
	"github.com/noah-isme/learnhub-api/internal/repository"
	"github.com/noah-isme/learnhub-api/pkg/mailer"
	"github.com/noah-isme/learnhub-api/pkg/paymob"
)

var (
	// ErrInvalidPaymentMethod indicates a method other than card or wallet.
	ErrInvalidPaymentMethod = errors.New("payment method must be card or wallet")
	// ErrWalletPhoneRequired indicates a wallet checkout without a phone number.
	ErrWalletPhoneRequired = errors.New("wallet payments require a phone number")
	// ErrPaymentNotFound indicates no payment carries the callback reference.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrGatewayUnavailable wraps gateway failures; the payment stays Pending.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrInvalidSignature indicates a callback that failed HMAC verification.
	ErrInvalidSignature = errors.New("callback signature invalid")
	// ErrInvalidCallback indicates a callback body with an unexpected shape.
	ErrInvalidCallback = errors.New("callback payload invalid")
)

// PaymentGateway is the checkout handshake offered by the card/wallet provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, merchantReference string) (string, error)
	RequestPaymentKey(ctx context.Context, orderID string, billing paymob.BillingData, amountCents int64, currency, method string) (string, error)
	RedirectURL(ctx context.Context, method, paymentToken, walletPhone string) (string, error)
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// PaymentConfig carries the gateway settings injected at construction.
type PaymentConfig struct {
	Currency        string
	HMACSecret      string
	GatewayTimeout  time.Duration
	StalePaymentAge time.Duration
}

// RedirectOutcome describes the browser redirect after checkout.
type RedirectOutcome struct {
	TransactionID string
	Succeeded     bool
	Pending       bool
	Enrollment    dto.EnrollmentResponse
}

// PaymentService requests gateway checkouts and reconciles their callbacks.
type PaymentService interface {
	RequestPayment(ctx context.Context, payload dto.PaymentCreateRequest) (dto.CheckoutResponse, error)
	VerifyCallback(fields paymob.FieldExtractor, signature string) bool
	HandleServerCallback(ctx context.Context, body []byte, querySignature string) (dto.CallbackAck, error)
	HandleRedirect(ctx context.Context, fields paymob.QueryFields) (RedirectOutcome, error)
	FinalizeOrder(ctx context.Context, transactionReference string, succeeded bool) (dto.EnrollmentResponse, error)
	ListPayments(ctx context.Context, userID string) ([]dto.PaymentResponse, error)
	SweepStalePayments(ctx context.Context) (int, error)
}

type paymentService struct {
	payments    repository.PaymentRepository
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	students    repository.StudentRepository
	transactor  repository.Transactor
	coupons     CouponService
	gateway     PaymentGateway
	mailer      Mailer
	notifier    Notifier
	settler     *freeEnrollmentSettler
	cfg         PaymentConfig
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// PaymentDependencies groups the collaborators of the payment service.
type PaymentDependencies struct {
	Payments    repository.PaymentRepository
	Enrollments repository.EnrollmentRepository
	Courses     repository.CourseRepository
	Students    repository.StudentRepository
	Transactor  repository.Transactor
	Coupons     CouponService
	Gateway     PaymentGateway
	Mailer      Mailer
	Notifier    Notifier
}

// NewPaymentService constructs the payment reconciler.
func NewPaymentService(deps PaymentDependencies, cfg PaymentConfig, validate *validator.Validate, logger zerolog.Logger) PaymentService {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if cfg.StalePaymentAge <= 0 {
		cfg.StalePaymentAge = 2 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "EGP"
	}

	serviceLogger := logger.With().Str("component", "payment_service").Logger()
	return &paymentService{
		payments:    deps.Payments,
		enrollments: deps.Enrollments,
		courses:     deps.Courses,
		students:    deps.Students,
		transactor:  deps.Transactor,
		coupons:     deps.Coupons,
		gateway:     deps.Gateway,
		mailer:      deps.Mailer,
		notifier:    deps.Notifier,
		settler:     newFreeEnrollmentSettler(deps.Transactor, deps.Enrollments, deps.Coupons, deps.Notifier, serviceLogger),
		cfg:         cfg,
		validator:   validate,
		logger:      serviceLogger,
		tracer:      observability.Tracer("payment"),
		now:         time.Now,
	}
}

func (s *paymentService) RequestPayment(ctx context.Context, payload dto.PaymentCreateRequest) (dto.CheckoutResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CheckoutResponse{}, err
	}

	method := strings.ToLower(strings.TrimSpace(payload.PaymentMethod))
	if method != models.PaymentMethodCard && method != models.PaymentMethodWallet {
		return dto.CheckoutResponse{}, ErrInvalidPaymentMethod
	}

	spanCtx, span := s.tracer.Start(ctx, "payments.request", trace.WithAttributes(
		attribute.Int("payment.enrollment_id", int(payload.EnrollmentID)),
		attribute.String("payment.method", method),
	))
	defer span.End()

	enrollment, err := s.enrollments.GetByID(spanCtx, payload.EnrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckoutResponse{}, ErrEnrollmentNotFound
		}
		return dto.CheckoutResponse{}, err
	}
	if enrollment.StudentID != payload.StudentID || enrollment.PaymentStatus == models.PaymentStatusCancelled {
		return dto.CheckoutResponse{}, ErrEnrollmentNotFound
	}
	if enrollment.IsPaid() {
		return dto.CheckoutResponse{}, ErrAlreadyEnrolled
	}

	couponCode := normalizeCouponCode(payload.CouponCode)
	course, err := s.courses.GetByID(spanCtx, enrollment.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if couponCode != "" {
				return dto.CheckoutResponse{}, ErrCouponCourseMissing
			}
			return dto.CheckoutResponse{}, ErrCourseNotFound
		}
		return dto.CheckoutResponse{}, err
	}
	enrollment.Course = course

	amount, err := s.coupons.ApplyCoupon(spanCtx, couponCode, course.Price, enrollment.StudentID, course.ID)
	if err != nil {
		return dto.CheckoutResponse{}, err
	}

	if amount == 0 {
		if err := s.settler.settle(spanCtx, &enrollment, course.Title, couponCode); err != nil {
			return dto.CheckoutResponse{}, err
		}
		return dto.CheckoutResponse{Enrollment: dto.NewEnrollmentResponse(enrollment)}, nil
	}

	student, err := s.students.GetByID(spanCtx, enrollment.StudentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CheckoutResponse{}, err
	}

	walletPhone := strings.TrimSpace(payload.WalletPhone)
	if walletPhone == "" {
		walletPhone = student.Phone
	}
	if method == models.PaymentMethodWallet && walletPhone == "" {
		return dto.CheckoutResponse{}, ErrWalletPhoneRequired
	}

	currency := course.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	// An open attempt for the same checkout is resumed on its gateway order,
	// which the gateway locks once paid, so a retried checkout cannot charge twice.
	open, err := s.payments.FindOpenAttempt(spanCtx, enrollment.ID, s.now().UTC().Add(-s.cfg.StalePaymentAge))
	switch {
	case err == nil && open.Amount == amount && open.Currency == currency && open.PaymentMethod == method && open.CouponCode == couponCode:
		s.logger.Info().
			Uint("payment_id", open.ID).
			Uint("enrollment_id", enrollment.ID).
			Str("transaction_id", *open.TransactionID).
			Msg("resuming open payment attempt")
		return s.startCheckout(spanCtx, span, open, enrollment, student, walletPhone)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.CheckoutResponse{}, err
	}

	payment := models.Payment{
		Amount:            amount,
		Currency:          currency,
		PaymentMethod:     method,
		MerchantReference: uuid.NewString(),
		Status:            models.PaymentStatusPending,
		EnrollmentID:      enrollment.ID,
		UserID:            enrollment.StudentID,
		PaymentDate:       s.now().UTC(),
		CouponCode:        couponCode,
	}
	if err := s.payments.Create(spanCtx, &payment); err != nil {
		return dto.CheckoutResponse{}, err
	}

	if enrollment.PaymentStatus != models.PaymentStatusPending {
		if err := s.enrollments.UpdatePaymentStatus(spanCtx, enrollment.ID, models.PaymentStatusPending); err != nil {
			return dto.CheckoutResponse{}, err
		}
		enrollment.PaymentStatus = models.PaymentStatusPending
	}

	return s.startCheckout(spanCtx, span, payment, enrollment, student, walletPhone)
}

func (s *paymentService) startCheckout(ctx context.Context, span trace.Span, payment models.Payment, enrollment models.Enrollment, student models.Student, walletPhone string) (dto.CheckoutResponse, error) {
	redirectURL, err := s.checkout(ctx, &payment, student, walletPhone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway checkout failed")
		s.logger.Error().Err(err).
			Uint("payment_id", payment.ID).
			Uint("enrollment_id", enrollment.ID).
			Str("merchant_reference", payment.MerchantReference).
			Msg("gateway checkout failed, payment left pending")
		return dto.CheckoutResponse{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	s.logger.Info().
		Uint("payment_id", payment.ID).
		Uint("enrollment_id", enrollment.ID).
		Str("transaction_id", *payment.TransactionID).
		Msg("payment requested")

	paymentResponse := dto.NewPaymentResponse(payment)
	return dto.CheckoutResponse{
		Payment:     &paymentResponse,
		Enrollment:  dto.NewEnrollmentResponse(enrollment),
		RedirectURL: redirectURL,
	}, nil
}

// checkout runs the gateway handshake under the configured timeout. A new
// gateway order is registered only when the payment has none yet, and its id
// is stored as soon as it exists so a later callback can still find the
// payment if the remaining steps fail.
func (s *paymentService) checkout(ctx context.Context, payment *models.Payment, student models.Student, walletPhone string) (string, error) {
	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	start := s.now()
	result := "error"
	defer func() {
		observability.GatewayLatency().WithLabelValues(payment.PaymentMethod, result).Observe(s.now().Sub(start).Seconds())
	}()

	amountCents := minorUnits(payment.Amount)
	if payment.TransactionID == nil {
		orderID, err := s.gateway.CreateOrder(gatewayCtx, amountCents, payment.Currency, payment.MerchantReference)
		if err != nil {
			return "", err
		}

		if err := s.payments.AttachTransaction(ctx, payment.ID, orderID); err != nil {
			return "", fmt.Errorf("store gateway order: %w", err)
		}
		payment.TransactionID = &orderID
	}

	billing := paymob.NewBillingData(student.Name, student.Email, walletPhone)
	token, err := s.gateway.RequestPaymentKey(gatewayCtx, *payment.TransactionID, billing, amountCents, payment.Currency, payment.PaymentMethod)
	if err != nil {
		return "", err
	}

	redirectURL, err := s.gateway.RedirectURL(gatewayCtx, payment.PaymentMethod, token, walletPhone)
	if err != nil {
		return "", err
	}

	result = "ok"
	return redirectURL, nil
}

func (s *paymentService) VerifyCallback(fields paymob.FieldExtractor, signature string) bool {
	return paymob.VerifyCallback(fields, signature, s.cfg.HMACSecret)
}

func (s *paymentService) HandleServerCallback(ctx context.Context, body []byte, querySignature string) (dto.CallbackAck, error) {
	callback, err := paymob.ParseServerCallback(body)
	if err != nil {
		observability.CallbacksRejected().WithLabelValues("payload").Inc()
		s.logger.Warn().Err(err).Msg("server callback rejected")
		return dto.CallbackAck{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	signature := strings.TrimSpace(querySignature)
	if signature == "" {
		signature = callback.Signature
	}

	if !s.VerifyCallback(callback.Fields, signature) {
		observability.CallbacksRejected().WithLabelValues("signature").Inc()
		orderID, _ := callback.Fields.Get("order")
		s.logger.Warn().Str("transaction_id", orderID).Msg("server callback signature mismatch")
		return dto.CallbackAck{}, ErrInvalidSignature
	}

	result, err := paymob.ResultFrom(callback.Fields)
	if err != nil {
		observability.CallbacksRejected().WithLabelValues("payload").Inc()
		return dto.CallbackAck{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	if result.Pending {
		s.logger.Info().Str("transaction_id", result.OrderID).Msg("callback reports pending transaction, waiting for final state")
		return dto.CallbackAck{TransactionID: result.OrderID, PaymentStatus: models.PaymentStatusPending}, nil
	}

	enrollment, err := s.finalize(ctx, result, datatypes.JSONMap(callback.Raw))
	if err != nil {
		return dto.CallbackAck{}, err
	}

	return dto.CallbackAck{TransactionID: result.OrderID, PaymentStatus: enrollment.PaymentStatus}, nil
}

func (s *paymentService) HandleRedirect(ctx context.Context, fields paymob.QueryFields) (RedirectOutcome, error) {
	if !s.VerifyCallback(fields, fields["hmac"]) {
		observability.CallbacksRejected().WithLabelValues("signature").Inc()
		s.logger.Warn().Str("transaction_id", fields["order"]).Msg("redirect signature mismatch")
		return RedirectOutcome{}, ErrInvalidSignature
	}

	result, err := paymob.ResultFrom(fields)
	if err != nil {
		observability.CallbacksRejected().WithLabelValues("payload").Inc()
		return RedirectOutcome{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	outcome := RedirectOutcome{TransactionID: result.OrderID, Succeeded: result.Success, Pending: result.Pending}
	if result.Pending {
		return outcome, nil
	}

	payload := make(datatypes.JSONMap, len(fields))
	for key, value := range fields {
		if key == "hmac" {
			continue
		}
		payload[key] = value
	}

	enrollment, err := s.finalize(ctx, result, payload)
	if err != nil {
		return RedirectOutcome{}, err
	}
	outcome.Enrollment = enrollment
	return outcome, nil
}

func (s *paymentService) FinalizeOrder(ctx context.Context, transactionReference string, succeeded bool) (dto.EnrollmentResponse, error) {
	return s.finalize(ctx, paymob.TransactionResult{OrderID: transactionReference, Success: succeeded}, nil)
}

// finalize settles the payment exactly once. Replayed callbacks find the
// payment already terminal and return the enrollment without side effects.
func (s *paymentService) finalize(ctx context.Context, result paymob.TransactionResult, payload datatypes.JSONMap) (dto.EnrollmentResponse, error) {
	reference := strings.TrimSpace(result.OrderID)
	spanCtx, span := s.tracer.Start(ctx, "payments.finalize", trace.WithAttributes(
		attribute.String("payment.transaction_id", reference),
		attribute.Bool("payment.succeeded", result.Success),
	))
	defer span.End()

	payment, err := s.payments.FindByTransactionID(spanCtx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("transaction_id", reference).Msg("callback for unknown payment")
			return dto.EnrollmentResponse{}, ErrPaymentNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	status := models.PaymentStatusFailed
	if result.Success {
		status = models.PaymentStatusSuccess
	}

	// settled reports the payment left Pending; changed reports the enrollment
	// moved with it. Side effects follow changed.
	var settled, changed bool
	err = s.transactor.InTransaction(spanCtx, func(tx *gorm.DB) error {
		var err error
		settled, err = s.payments.WithTx(tx).MarkSettled(spanCtx, payment.ID, repository.PaymentSettlement{
			Status:               status,
			GatewayTransactionID: result.TransactionID,
			Payload:              payload,
			ProcessedAt:          s.now().UTC(),
		})
		if err != nil || !settled {
			return err
		}

		enrollments := s.enrollments.WithTx(tx)
		if !result.Success {
			changed, err = enrollments.FailPending(spanCtx, payment.EnrollmentID)
			return err
		}

		changed, err = enrollments.SettleUnpaid(spanCtx, payment.EnrollmentID)
		if err != nil || !changed {
			return err
		}
		return s.coupons.RecordRedemption(spanCtx, tx, payment.CouponCode, payment.UserID, &payment.ID)
	})
	if err != nil {
		span.RecordError(err)
		return dto.EnrollmentResponse{}, fmt.Errorf("finalize payment %d: %w", payment.ID, err)
	}

	enrollment, err := s.enrollments.GetByID(spanCtx, payment.EnrollmentID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if course, err := s.courses.GetByID(spanCtx, enrollment.CourseID); err == nil {
		enrollment.Course = course
	}

	if !settled {
		s.logger.Info().Uint("payment_id", payment.ID).Str("transaction_id", reference).Msg("payment already settled, ignoring replay")
		return dto.NewEnrollmentResponse(enrollment), nil
	}

	outcome := strings.ToLower(status)
	if result.Success && !changed {
		outcome = "needs_review"
	}
	observability.PaymentsFinalized().WithLabelValues(outcome).Inc()

	if result.Success && !changed {
		s.logger.Warn().
			Uint("payment_id", payment.ID).
			Uint("enrollment_id", enrollment.ID).
			Str("transaction_id", reference).
			Str("enrollment_payment_status", enrollment.PaymentStatus).
			Float64("amount", payment.Amount).
			Msg("payment captured for an enrollment that was already paid or cancelled, refund review required")
		return dto.NewEnrollmentResponse(enrollment), nil
	}

	s.logger.Info().
		Uint("payment_id", payment.ID).
		Uint("enrollment_id", enrollment.ID).
		Str("transaction_id", reference).
		Str("status", status).
		Msg("payment finalized")

	if !changed {
		return dto.NewEnrollmentResponse(enrollment), nil
	}

	payment.Status = status
	if result.Success {
		s.sendConfirmation(spanCtx, payment, enrollment)
		notifyEnrolled(spanCtx, s.notifier, s.logger, enrollment.StudentID, enrollment.Course.Title)
	} else {
		s.notifyDeclined(spanCtx, enrollment)
	}

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *paymentService) sendConfirmation(ctx context.Context, payment models.Payment, enrollment models.Enrollment) {
	if s.mailer == nil {
		return
	}

	student, err := s.students.GetByID(ctx, payment.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("student_id", payment.UserID).Msg("cannot send confirmation, student not found")
		return
	}

	msg, err := mailer.NewEnrollmentConfirmation(mailer.EnrollmentConfirmation{
		StudentName:  student.Name,
		StudentEmail: student.Email,
		CourseTitle:  enrollment.Course.Title,
		Amount:       strconv.FormatFloat(payment.Amount, 'f', 2, 64),
		Currency:     payment.Currency,
		Reference:    payment.MerchantReference,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("payment_id", payment.ID).Msg("failed to render confirmation email")
		return
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Uint("payment_id", payment.ID).Msg("failed to send confirmation email")
	}
}

func (s *paymentService) notifyDeclined(ctx context.Context, enrollment models.Enrollment) {
	if s.notifier == nil {
		return
	}

	title := enrollment.Course.Title
	if title == "" {
		title = "your course"
	}

	_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  enrollment.StudentID,
		Type:    NotificationTypePayment,
		Message: fmt.Sprintf("Your payment for %s was declined. You can try again from your enrollments.", title),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("student_id", enrollment.StudentID).Msg("failed to send payment notification")
	}
}

func (s *paymentService) ListPayments(ctx context.Context, userID string) ([]dto.PaymentResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewPaymentResponseSlice(payments), nil
}

// SweepStalePayments reports Pending payments older than the configured age
// for manual reconciliation. It never changes their state.
func (s *paymentService) SweepStalePayments(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.StalePaymentAge)
	stale, err := s.payments.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	observability.StalePendingPayments().Set(float64(len(stale)))
	for _, payment := range stale {
		event := s.logger.Warn().
			Uint("payment_id", payment.ID).
			Uint("enrollment_id", payment.EnrollmentID).
			Str("merchant_reference", payment.MerchantReference).
			Time("payment_date", payment.PaymentDate)
		if payment.TransactionID != nil {
			event = event.Str("transaction_id", *payment.TransactionID)
		}
		event.Msg("payment pending beyond reconciliation threshold")
	}

	return len(stale), nil
}
