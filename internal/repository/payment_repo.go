package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// PaymentSettlement carries the callback outcome written on a pending payment.
type PaymentSettlement struct {
	Status               string
	GatewayTransactionID string
	Payload              datatypes.JSONMap
	ProcessedAt          time.Time
}

// PaymentRepository persists gateway payment attempts.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(ctx context.Context, payment *models.Payment) error
	AttachTransaction(ctx context.Context, id uint, transactionID string) error
	FindByTransactionID(ctx context.Context, transactionID string) (models.Payment, error)
	FindOpenAttempt(ctx context.Context, enrollmentID uint, since time.Time) (models.Payment, error)
	MarkSettled(ctx context.Context, id uint, settlement PaymentSettlement) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	ListStalePending(ctx context.Context, before time.Time) ([]models.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository instantiates the repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) AttachTransaction(ctx context.Context, id uint, transactionID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"transaction_id": transactionID, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// FindOpenAttempt returns the newest Pending payment of the enrollment that
// registered a gateway order at or after since.
func (r *paymentRepository) FindOpenAttempt(ctx context.Context, enrollmentID uint, since time.Time) (models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND status = ? AND transaction_id IS NOT NULL AND payment_date >= ?", enrollmentID, models.PaymentStatusPending, since).
		Order("payment_date DESC, id DESC").
		First(&payment).Error; err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// MarkSettled moves a payment out of Pending. It reports false when another
// callback already settled it.
func (r *paymentRepository) MarkSettled(ctx context.Context, id uint, settlement PaymentSettlement) (bool, error) {
	updates := map[string]interface{}{
		"status":                 settlement.Status,
		"gateway_transaction_id": settlement.GatewayTransactionID,
		"processed_at":           settlement.ProcessedAt,
		"updated_at":             settlement.ProcessedAt,
	}
	if settlement.Payload != nil {
		updates["gateway_payload"] = settlement.Payload
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("payment_date DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) ListStalePending(ctx context.Context, before time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND payment_date < ?", models.PaymentStatusPending, before).
		Order("payment_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
