package dto

import (
	"time"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// PaymentCreateRequest starts a checkout for one of the caller's enrollments.
type PaymentCreateRequest struct {
	EnrollmentID  uint   `json:"enrollment_id" validate:"required,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	CouponCode    string `json:"coupon_code" validate:"omitempty,max=64"`
	WalletPhone   string `json:"wallet_phone" validate:"omitempty,e164|numeric"`
	StudentID     string `json:"-" validate:"required,max=64"`
}

// PaymentResponse describes a payment attempt.
type PaymentResponse struct {
	ID                uint       `json:"id"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	PaymentMethod     string     `json:"payment_method"`
	Status            string     `json:"status"`
	TransactionID     string     `json:"transaction_id,omitempty"`
	MerchantReference string     `json:"merchant_reference"`
	EnrollmentID      uint       `json:"enrollment_id"`
	CouponCode        string     `json:"coupon_code,omitempty"`
	PaymentDate       time.Time  `json:"payment_date"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
}

// CheckoutResponse is returned when a payment is requested. Payment is nil
// when a coupon made the course free and the enrollment settled immediately.
type CheckoutResponse struct {
	Payment     *PaymentResponse   `json:"payment,omitempty"`
	Enrollment  EnrollmentResponse `json:"enrollment"`
	RedirectURL string             `json:"redirect_url,omitempty"`
}

// CallbackAck acknowledges a server callback.
type CallbackAck struct {
	TransactionID string `json:"transaction_id"`
	PaymentStatus string `json:"payment_status"`
}

// NewPaymentResponse converts a payment model into a DTO.
func NewPaymentResponse(model models.Payment) PaymentResponse {
	response := PaymentResponse{
		ID:                model.ID,
		Amount:            model.Amount,
		Currency:          model.Currency,
		PaymentMethod:     model.PaymentMethod,
		Status:            model.Status,
		MerchantReference: model.MerchantReference,
		EnrollmentID:      model.EnrollmentID,
		CouponCode:        model.CouponCode,
		PaymentDate:       model.PaymentDate,
		ProcessedAt:       model.ProcessedAt,
	}
	if model.TransactionID != nil {
		response.TransactionID = *model.TransactionID
	}
	return response
}

// NewPaymentResponseSlice converts payments into DTOs.
func NewPaymentResponseSlice(items []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPaymentResponse(item))
	}
	return out
}
