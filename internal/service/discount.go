package service

import (
	"math"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CouponRejection is returned when a coupon cannot be applied. Reason is the
// message shown to the student.
type CouponRejection struct {
	Reason string
}

func (e *CouponRejection) Error() string {
	return e.Reason
}

// Coupon rejection reasons.
var (
	ErrCouponInvalid       = &CouponRejection{Reason: "Invalid or expired coupon code"}
	ErrCouponAlreadyUsed   = &CouponRejection{Reason: "Coupon code has already been used"}
	ErrCouponWrongCourse   = &CouponRejection{Reason: "Coupon code is not valid for this course"}
	ErrInvalidDiscountType = &CouponRejection{Reason: "Invalid discount type"}
	ErrCouponCourseMissing = &CouponRejection{Reason: "Course not found"}
)

// ApplyDiscount computes the price after a discount rule. The result is never negative.
func ApplyDiscount(amount float64, discountType string, discountValue float64) (float64, error) {
	var discounted float64
	switch discountType {
	case models.DiscountTypePercentage:
		discounted = amount - amount*(discountValue/100)
	case models.DiscountTypeFixed:
		discounted = amount - discountValue
	case models.DiscountTypeSetPrice:
		discounted = discountValue
	case models.DiscountTypeFree:
		discounted = 0
	default:
		return 0, ErrInvalidDiscountType
	}

	if discounted < 0 {
		return 0, nil
	}
	return roundCents(discounted), nil
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// minorUnits converts a major-unit amount into the integer cents the gateway expects.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
