package dto

import (
	"time"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CouponApplyRequest previews a coupon against a course price.
type CouponApplyRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	CourseID uint   `json:"course_id" validate:"required,gt=0"`
}

// CouponApplyResponse reports the discounted price.
type CouponApplyResponse struct {
	Code             string  `json:"code"`
	CourseID         uint    `json:"course_id"`
	OriginalAmount   float64 `json:"original_amount"`
	DiscountedAmount float64 `json:"discounted_amount"`
	Currency         string  `json:"currency"`
}

// CouponCreateRequest is the admin payload for a new coupon.
type CouponCreateRequest struct {
	Code           string    `json:"code" validate:"required,min=3,max=64,alphanum"`
	DiscountType   string    `json:"discount_type" validate:"required,oneof=percentage fixed setprice free"`
	DiscountValue  float64   `json:"discount_value" validate:"gte=0"`
	ExpirationDate time.Time `json:"expiration_date" validate:"required"`
	UsageLimit     int       `json:"usage_limit" validate:"required,gt=0"`
	IsGlobal       bool      `json:"is_global"`
	CourseID       *uint     `json:"course_id" validate:"omitempty,gt=0"`
}

// CouponResponse describes a coupon for administrators.
type CouponResponse struct {
	ID             uint      `json:"id"`
	Code           string    `json:"code"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  float64   `json:"discount_value"`
	ExpirationDate time.Time `json:"expiration_date"`
	UsageLimit     int       `json:"usage_limit"`
	IsGlobal       bool      `json:"is_global"`
	CourseID       *uint     `json:"course_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CouponListResponse wraps a paginated coupon page.
type CouponListResponse struct {
	Items      []CouponResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// NewCouponResponse converts a coupon model into a DTO.
func NewCouponResponse(model models.CouponCode) CouponResponse {
	return CouponResponse{
		ID:             model.ID,
		Code:           model.Code,
		DiscountType:   model.DiscountType,
		DiscountValue:  model.DiscountValue,
		ExpirationDate: model.ExpirationDate,
		UsageLimit:     model.UsageLimit,
		IsGlobal:       model.IsGlobal,
		CourseID:       model.CourseID,
		CreatedAt:      model.CreatedAt,
	}
}

// NewCouponResponseSlice converts coupons into DTOs.
func NewCouponResponseSlice(items []models.CouponCode) []CouponResponse {
	out := make([]CouponResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCouponResponse(item))
	}
	return out
}
