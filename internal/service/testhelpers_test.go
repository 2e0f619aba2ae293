package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/repository"
	"github.com/noah-isme/learnhub-api/pkg/mailer"
	"github.com/noah-isme/learnhub-api/pkg/paymob"
)

const testHMACSecret = "callback-secret"

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, price float64, lessons int) (models.Course, []models.Lesson) {
	t.Helper()
	course := models.Course{Title: fmt.Sprintf("Go Fundamentals %d", time.Now().UnixNano()), Price: price, Currency: "EGP", Published: true}
	require.NoError(t, db.Create(&course).Error)

	module := models.Module{CourseID: course.ID, Title: "Basics", Position: 1}
	require.NoError(t, db.Create(&module).Error)

	created := make([]models.Lesson, 0, lessons)
	for i := 0; i < lessons; i++ {
		lesson := models.Lesson{ModuleID: module.ID, Title: fmt.Sprintf("Lesson %d", i+1), Position: i + 1, Published: true}
		require.NoError(t, db.Create(&lesson).Error)
		created = append(created, lesson)
	}
	return course, created
}

func seedStudent(t *testing.T, db *gorm.DB, id string) models.Student {
	t.Helper()
	student := models.Student{ID: id, Name: "Ada Lovelace", Email: id + "@example.com", Phone: "+201000000000"}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedCoupon(t *testing.T, db *gorm.DB, code, discountType string, value float64, limit int, courseID *uint) models.CouponCode {
	t.Helper()
	coupon := models.CouponCode{
		Code:           code,
		DiscountType:   discountType,
		DiscountValue:  value,
		ExpirationDate: time.Now().Add(72 * time.Hour),
		UsageLimit:     limit,
		IsGlobal:       courseID == nil,
		CourseID:       courseID,
	}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

type stubGateway struct {
	mu         sync.Mutex
	nextOrder  int
	orderErr   error
	keyErr     error
	orders     []int64
	lastMethod string
}

func (g *stubGateway) CreateOrder(_ context.Context, amountCents int64, _ string, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return "", g.orderErr
	}
	g.nextOrder++
	g.orders = append(g.orders, amountCents)
	return fmt.Sprintf("order-%d", g.nextOrder), nil
}

func (g *stubGateway) RequestPaymentKey(_ context.Context, _ string, _ paymob.BillingData, _ int64, _ string, method string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keyErr != nil {
		return "", g.keyErr
	}
	g.lastMethod = method
	return "payment-token", nil
}

func (g *stubGateway) RedirectURL(_ context.Context, method, token, _ string) (string, error) {
	return fmt.Sprintf("https://gateway.test/%s?token=%s", method, token), nil
}

func (g *stubGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type stubMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []dto.NotificationCreateRequest
}

func (n *recordingNotifier) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

type serviceHarness struct {
	db          *gorm.DB
	enrollments EnrollmentService
	coupons     CouponService
	payments    PaymentService
	gateway     *stubGateway
	mailer      *stubMailer
	notifier    *recordingNotifier
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := setupServiceDB(t)

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	transactor := repository.NewTransactor(db)

	h := &serviceHarness{
		db:       db,
		gateway:  &stubGateway{},
		mailer:   &stubMailer{},
		notifier: &recordingNotifier{},
	}
	h.coupons = NewCouponService(couponRepo, courseRepo, testValidator(), testLogger())
	h.enrollments = NewEnrollmentService(enrollmentRepo, courseRepo, transactor, h.notifier, testValidator(), testLogger())
	h.payments = NewPaymentService(PaymentDependencies{
		Payments:    repository.NewPaymentRepository(db),
		Enrollments: enrollmentRepo,
		Courses:     courseRepo,
		Students:    repository.NewStudentRepository(db),
		Transactor:  transactor,
		Coupons:     h.coupons,
		Gateway:     h.gateway,
		Mailer:      h.mailer,
		Notifier:    h.notifier,
	}, PaymentConfig{
		Currency:        "EGP",
		HMACSecret:      testHMACSecret,
		GatewayTimeout:  time.Second,
		StalePaymentAge: time.Hour,
	}, testValidator(), testLogger())

	return h
}

func (h *serviceHarness) enroll(t *testing.T, studentID string, courseID uint) dto.EnrollmentResponse {
	t.Helper()
	enrollment, err := h.enrollments.CreateEnrollment(context.Background(), dto.EnrollmentCreateRequest{CourseID: courseID, StudentID: studentID})
	require.NoError(t, err)
	return enrollment
}

func (h *serviceHarness) reloadEnrollment(t *testing.T, id uint) models.Enrollment {
	t.Helper()
	var enrollment models.Enrollment
	require.NoError(t, h.db.First(&enrollment, id).Error)
	return enrollment
}

func (h *serviceHarness) reloadPayment(t *testing.T, id uint) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, h.db.First(&payment, id).Error)
	return payment
}

// signedRedirect builds the query string the gateway appends to the browser redirect.
func signedRedirect(t *testing.T, orderID string, success bool) paymob.QueryFields {
	t.Helper()
	fields := paymob.QueryFields{
		"amount_cents":           "10000",
		"created_at":             "2024-05-01T10:00:00.000000",
		"currency":               "EGP",
		"error_occured":          "false",
		"has_parent_transaction": "false",
		"id":                     "987654",
		"integration_id":         "4455",
		"is_3d_secure":           "true",
		"is_auth":                "false",
		"is_capture":             "false",
		"is_refunded":            "false",
		"is_standalone_payment":  "true",
		"is_voided":              "false",
		"order":                  orderID,
		"owner":                  "77",
		"pending":                "false",
		"source_data.pan":        "2346",
		"source_data.sub_type":   "MasterCard",
		"source_data.type":       "card",
		"success":                fmt.Sprintf("%t", success),
	}
	data, err := paymob.ConcatenateFields(fields)
	require.NoError(t, err)
	fields["hmac"] = paymob.Sign(data, testHMACSecret)
	return fields
}

// signedServerCallback builds a server callback body and its signature.
func signedServerCallback(t *testing.T, orderID string, success, pending bool) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"type": "TRANSACTION",
		"obj": map[string]interface{}{
			"id":                     987654,
			"pending":                pending,
			"amount_cents":           10000,
			"success":                success,
			"is_auth":                false,
			"is_capture":             false,
			"is_standalone_payment":  true,
			"is_voided":              false,
			"is_refunded":            false,
			"is_3d_secure":           true,
			"integration_id":         4455,
			"has_parent_transaction": false,
			"order":                  map[string]interface{}{"id": orderID},
			"created_at":             "2024-05-01T10:00:00.000000",
			"currency":               "EGP",
			"error_occured":          false,
			"owner":                  77,
			"source_data":            map[string]interface{}{"pan": "2346", "type": "card", "sub_type": "MasterCard"},
		},
	})
	require.NoError(t, err)

	callback, err := paymob.ParseServerCallback(body)
	require.NoError(t, err)
	data, err := paymob.ConcatenateFields(callback.Fields)
	require.NoError(t, err)
	return body, paymob.Sign(data, testHMACSecret)
}
