package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment methods accepted by the gateway integration.
const (
	PaymentMethodCard   = "card"
	PaymentMethodWallet = "wallet"
)

// Payment is one gateway attempt for an enrollment.
type Payment struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	Amount               float64           `gorm:"not null" json:"amount"`
	Currency             string            `gorm:"size:8;not null" json:"currency"`
	PaymentMethod        string            `gorm:"size:16;not null" json:"payment_method"`
	TransactionID        *string           `gorm:"size:64;uniqueIndex" json:"transaction_id"`
	MerchantReference    string            `gorm:"size:64;uniqueIndex;not null" json:"merchant_reference"`
	Status               string            `gorm:"size:16;not null;default:Pending;index" json:"status"`
	EnrollmentID         uint              `gorm:"not null;index" json:"enrollment_id"`
	UserID               string            `gorm:"size:64;not null;index" json:"user_id"`
	PaymentDate          time.Time         `gorm:"not null" json:"payment_date"`
	CouponCode           string            `gorm:"size:64" json:"coupon_code,omitempty"`
	GatewayTransactionID string            `gorm:"size:64" json:"gateway_transaction_id,omitempty"`
	GatewayPayload       datatypes.JSONMap `gorm:"type:json" json:"-"`
	ProcessedAt          *time.Time        `json:"processed_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Enrollment           Enrollment        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// IsTerminal reports whether the callback has already settled the payment.
func (p Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}
