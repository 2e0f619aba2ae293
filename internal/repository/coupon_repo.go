package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CouponRepository persists coupon codes and their redemptions.
type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	FindRedeemable(ctx context.Context, code string, today time.Time) (models.CouponCode, error)
	FindByCode(ctx context.Context, code string) (models.CouponCode, error)
	HasUsage(ctx context.Context, couponID uint, userID string) (bool, error)
	InsertUsage(ctx context.Context, usage *models.CouponUsage) (bool, error)
	DecrementUsage(ctx context.Context, couponID uint) (bool, error)
	Create(ctx context.Context, coupon *models.CouponCode) error
	List(ctx context.Context, page, pageSize int) ([]models.CouponCode, int64, error)
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository instantiates the repository.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) WithTx(tx *gorm.DB) CouponRepository {
	return &couponRepository{db: tx}
}

// FindRedeemable returns the coupon when it expires after today and still has uses left.
func (r *couponRepository) FindRedeemable(ctx context.Context, code string, today time.Time) (models.CouponCode, error) {
	var coupon models.CouponCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND expiration_date > ? AND usage_limit > 0", code, today).
		First(&coupon).Error
	if err != nil {
		return models.CouponCode{}, err
	}
	return coupon, nil
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (models.CouponCode, error) {
	var coupon models.CouponCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return models.CouponCode{}, err
	}
	return coupon, nil
}

func (r *couponRepository) HasUsage(ctx context.Context, couponID uint, userID string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&total).Error
	return total > 0, err
}

func (r *couponRepository) InsertUsage(ctx context.Context, usage *models.CouponUsage) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(usage)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DecrementUsage consumes one use of the coupon. It reports false when no uses were left.
func (r *couponRepository) DecrementUsage(ctx context.Context, couponID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CouponCode{}).
		Where("id = ? AND usage_limit > 0", couponID).
		Updates(map[string]interface{}{
			"usage_limit": gorm.Expr("usage_limit - 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *models.CouponCode) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepository) List(ctx context.Context, page, pageSize int) ([]models.CouponCode, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.CouponCode{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var coupons []models.CouponCode
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&coupons).Error; err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}
