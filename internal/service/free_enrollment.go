package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/dto"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/repository"
)

// freeEnrollmentSettler grants access to a course without a gateway round
// trip. Both free courses and coupons that zero the price settle through it.
type freeEnrollmentSettler struct {
	transactor  repository.Transactor
	enrollments repository.EnrollmentRepository
	coupons     CouponService
	notifier    Notifier
	logger      zerolog.Logger
}

func newFreeEnrollmentSettler(transactor repository.Transactor, enrollments repository.EnrollmentRepository, coupons CouponService, notifier Notifier, logger zerolog.Logger) *freeEnrollmentSettler {
	return &freeEnrollmentSettler{
		transactor:  transactor,
		enrollments: enrollments,
		coupons:     coupons,
		notifier:    notifier,
		logger:      logger,
	}
}

// settle marks the enrollment paid and records the coupon that zeroed the
// price, if any. The student is notified only when this call changed state.
func (f *freeEnrollmentSettler) settle(ctx context.Context, enrollment *models.Enrollment, courseTitle, couponCode string) error {
	var settled bool
	err := f.transactor.InTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		settled, err = f.enrollments.WithTx(tx).SettleUnpaid(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		if !settled || couponCode == "" || f.coupons == nil {
			return nil
		}
		return f.coupons.RecordRedemption(ctx, tx, couponCode, enrollment.StudentID, nil)
	})
	if err != nil {
		return fmt.Errorf("settle free enrollment %d: %w", enrollment.ID, err)
	}

	enrollment.PaymentStatus = models.PaymentStatusSuccess
	if !settled {
		return nil
	}

	f.logger.Info().
		Uint("enrollment_id", enrollment.ID).
		Str("student_id", enrollment.StudentID).
		Str("coupon_code", couponCode).
		Msg("enrollment settled without payment")

	notifyEnrolled(ctx, f.notifier, f.logger, enrollment.StudentID, courseTitle)
	return nil
}

func notifyEnrolled(ctx context.Context, notifier Notifier, logger zerolog.Logger, studentID, courseTitle string) {
	if notifier == nil {
		return
	}

	_, err := notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  studentID,
		Type:    NotificationTypeEnrollment,
		Message: fmt.Sprintf("You are now enrolled in %s.", courseTitle),
	})
	if err != nil {
		logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to send enrollment notification")
	}
}
