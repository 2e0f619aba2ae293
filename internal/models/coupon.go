package models

import "time"

// Discount types understood by the coupon engine.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
	DiscountTypeSetPrice   = "setprice"
	DiscountTypeFree       = "free"
)

// CouponCode is a discount rule redeemable once per student.
type CouponCode struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Code           string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountType   string    `gorm:"size:16;not null" json:"discount_type"`
	DiscountValue  float64   `gorm:"not null;default:0" json:"discount_value"`
	ExpirationDate time.Time `gorm:"not null" json:"expiration_date"`
	UsageLimit     int       `gorm:"not null;default:0" json:"usage_limit"`
	IsGlobal       bool      `gorm:"not null;default:false" json:"is_global"`
	CourseID       *uint     `gorm:"index" json:"course_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AppliesTo reports whether the coupon may be used for the course.
func (c CouponCode) AppliesTo(courseID uint) bool {
	if c.IsGlobal {
		return true
	}
	return c.CourseID != nil && *c.CourseID == courseID
}

// CouponUsage marks a coupon as consumed by a user.
type CouponUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CouponID  uint      `gorm:"not null;uniqueIndex:idx_coupon_usage_user" json:"coupon_id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_coupon_usage_user" json:"user_id"`
	PaymentID *uint     `json:"payment_id"`
	UsedAt    time.Time `gorm:"not null" json:"used_at"`
}
