package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/observability"
	"github.com/noah-isme/learnhub-api/internal/repository"
)

var (
	// ErrCouponExists indicates the coupon code is already taken.
	ErrCouponExists = errors.New("coupon code already exists")
	// ErrCouponDefinition indicates an admin payload describing an unusable coupon.
	ErrCouponDefinition = errors.New("invalid coupon definition")
)

// CouponService validates coupons and records their redemption.
type CouponService interface {
	ApplyCoupon(ctx context.Context, code string, amount float64, studentID string, courseID uint) (float64, error)
	Preview(ctx context.Context, payload dto.CouponApplyRequest, studentID string) (dto.CouponApplyResponse, error)
	RecordRedemption(ctx context.Context, tx *gorm.DB, code, userID string, paymentID *uint) error
	Create(ctx context.Context, payload dto.CouponCreateRequest) (dto.CouponResponse, error)
	List(ctx context.Context, page, pageSize int) (dto.CouponListResponse, error)
}

type couponService struct {
	coupons   repository.CouponRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCouponService constructs the coupon engine.
func NewCouponService(coupons repository.CouponRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) CouponService {
	return &couponService{
		coupons:   coupons,
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "coupon_service").Logger(),
		now:       time.Now,
	}
}

// normalizeCouponCode gives the stored form of a code. Codes match case-insensitively.
func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *couponService) ApplyCoupon(ctx context.Context, code string, amount float64, studentID string, courseID uint) (float64, error) {
	code = normalizeCouponCode(code)
	if code == "" {
		return amount, nil
	}

	coupon, err := s.coupons.FindRedeemable(ctx, code, s.today())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrCouponInvalid
		}
		return 0, err
	}

	used, err := s.coupons.HasUsage(ctx, coupon.ID, studentID)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, ErrCouponAlreadyUsed
	}

	if !coupon.AppliesTo(courseID) {
		return 0, ErrCouponWrongCourse
	}

	return ApplyDiscount(amount, coupon.DiscountType, coupon.DiscountValue)
}

func (s *couponService) Preview(ctx context.Context, payload dto.CouponApplyRequest, studentID string) (dto.CouponApplyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CouponApplyResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, payload.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CouponApplyResponse{}, ErrCouponCourseMissing
		}
		return dto.CouponApplyResponse{}, err
	}

	discounted, err := s.ApplyCoupon(ctx, payload.Code, course.Price, studentID, course.ID)
	if err != nil {
		return dto.CouponApplyResponse{}, err
	}

	return dto.CouponApplyResponse{
		Code:             normalizeCouponCode(payload.Code),
		CourseID:         course.ID,
		OriginalAmount:   course.Price,
		DiscountedAmount: discounted,
		Currency:         course.Currency,
	}, nil
}

// RecordRedemption consumes one use of the coupon for userID. It runs on tx
// when given so the redemption commits together with the payment outcome.
// A second redemption by the same user is ignored.
func (s *couponService) RecordRedemption(ctx context.Context, tx *gorm.DB, code, userID string, paymentID *uint) error {
	code = normalizeCouponCode(code)
	if code == "" {
		return nil
	}

	repo := s.coupons
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("coupon_code", code).Str("user_id", userID).Msg("redeemed coupon no longer exists")
			return nil
		}
		return err
	}

	inserted, err := repo.InsertUsage(ctx, &models.CouponUsage{
		CouponID:  coupon.ID,
		UserID:    userID,
		PaymentID: paymentID,
		UsedAt:    s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record coupon usage: %w", err)
	}
	if !inserted {
		return nil
	}

	decremented, err := repo.DecrementUsage(ctx, coupon.ID)
	if err != nil {
		return fmt.Errorf("decrement coupon usage: %w", err)
	}
	if !decremented {
		s.logger.Warn().Uint("coupon_id", coupon.ID).Msg("coupon redeemed after its usage limit was exhausted")
	}

	observability.CouponRedemptions().Inc()
	s.logger.Info().Uint("coupon_id", coupon.ID).Str("user_id", userID).Msg("coupon redeemed")
	return nil
}

func (s *couponService) Create(ctx context.Context, payload dto.CouponCreateRequest) (dto.CouponResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CouponResponse{}, err
	}
	if !payload.IsGlobal && payload.CourseID == nil {
		return dto.CouponResponse{}, fmt.Errorf("%w: course_id is required for course scoped coupons", ErrCouponDefinition)
	}
	if payload.DiscountType == models.DiscountTypePercentage && payload.DiscountValue > 100 {
		return dto.CouponResponse{}, fmt.Errorf("%w: percentage discount cannot exceed 100", ErrCouponDefinition)
	}
	if !payload.ExpirationDate.After(s.now()) {
		return dto.CouponResponse{}, fmt.Errorf("%w: expiration date must be in the future", ErrCouponDefinition)
	}

	coupon := models.CouponCode{
		Code:           normalizeCouponCode(payload.Code),
		DiscountType:   payload.DiscountType,
		DiscountValue:  payload.DiscountValue,
		ExpirationDate: payload.ExpirationDate.UTC(),
		UsageLimit:     payload.UsageLimit,
		IsGlobal:       payload.IsGlobal,
	}
	if !payload.IsGlobal {
		coupon.CourseID = payload.CourseID
	}

	if err := s.coupons.Create(ctx, &coupon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CouponResponse{}, ErrCouponExists
		}
		return dto.CouponResponse{}, err
	}

	s.logger.Info().Uint("coupon_id", coupon.ID).Str("coupon_code", coupon.Code).Msg("coupon created")

	return dto.NewCouponResponse(coupon), nil
}

func (s *couponService) List(ctx context.Context, page, pageSize int) (dto.CouponListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	coupons, total, err := s.coupons.List(ctx, page, pageSize)
	if err != nil {
		return dto.CouponListResponse{}, err
	}

	return dto.CouponListResponse{
		Items:      dto.NewCouponResponseSlice(coupons),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *couponService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
