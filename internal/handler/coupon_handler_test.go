package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/handler"
	"github.com/noah-isme/learnhub-api/internal/service"
)

type mockCouponService struct {
	previewErr error
	createErr  error
	created    dto.CouponCreateRequest
}

func (m *mockCouponService) ApplyCoupon(_ context.Context, _ string, amount float64, _ string, _ uint) (float64, error) {
	return amount, nil
}

func (m *mockCouponService) Preview(_ context.Context, payload dto.CouponApplyRequest, _ string) (dto.CouponApplyResponse, error) {
	if m.previewErr != nil {
		return dto.CouponApplyResponse{}, m.previewErr
	}
	return dto.CouponApplyResponse{Code: payload.Code, CourseID: payload.CourseID, OriginalAmount: 100, DiscountedAmount: 80}, nil
}

func (m *mockCouponService) RecordRedemption(_ context.Context, _ *gorm.DB, _, _ string, _ *uint) error {
	return nil
}

func (m *mockCouponService) Create(_ context.Context, payload dto.CouponCreateRequest) (dto.CouponResponse, error) {
	m.created = payload
	if m.createErr != nil {
		return dto.CouponResponse{}, m.createErr
	}
	return dto.CouponResponse{ID: 1, Code: payload.Code}, nil
}

func (m *mockCouponService) List(_ context.Context, page, pageSize int) (dto.CouponListResponse, error) {
	return dto.CouponListResponse{
		Items:      []dto.CouponResponse{{ID: 1, Code: "SAVE10"}},
		Pagination: dto.NewPaginationMeta(page, pageSize, 1),
	}, nil
}

func TestCouponHandler_ApplySuccess(t *testing.T) {
	app := newAuthedApp("student-1")
	handler.NewCouponHandler(&mockCouponService{}, testLogger()).Register(app.Group("/api/v2/coupons"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v2/coupons/apply", map[string]interface{}{"code": "SAVE20", "course_id": 2}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.CouponApplyResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 80.0, body.Data.DiscountedAmount)
}

func TestCouponHandler_ApplyReturnsRejectionReason(t *testing.T) {
	rejections := []*service.CouponRejection{
		service.ErrCouponInvalid,
		service.ErrCouponAlreadyUsed,
		service.ErrCouponWrongCourse,
		service.ErrInvalidDiscountType,
		service.ErrCouponCourseMissing,
	}

	for _, rejection := range rejections {
		t.Run(rejection.Reason, func(t *testing.T) {
			app := newAuthedApp("student-1")
			handler.NewCouponHandler(&mockCouponService{previewErr: rejection}, testLogger()).Register(app.Group("/api/v2/coupons"))

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v2/coupons/apply", map[string]interface{}{"code": "X", "course_id": 2}))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.Equal(t, rejection.Reason, body.Message)
		})
	}
}

func TestCouponHandler_AdminRoutes(t *testing.T) {
	svc := &mockCouponService{}
	app := newAuthedApp("admin-1")
	handler.NewCouponHandler(svc, testLogger()).RegisterAdmin(app.Group("/api/v2/admin/coupons"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v2/admin/coupons", map[string]interface{}{
		"code":            "SPRING",
		"discount_type":   "fixed",
		"discount_value":  10,
		"expiration_date": "2030-01-01T00:00:00Z",
		"usage_limit":     5,
		"is_global":       true,
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "SPRING", svc.created.Code)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v2/admin/coupons?page=2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Meta dto.PaginationMeta `json:"meta"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 2, body.Meta.Page)

	svc.createErr = service.ErrCouponExists
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v2/admin/coupons", map[string]interface{}{"code": "SPRING"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
