package repositories

import (
	"errors"
	"time"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPromoCodeNotFound    = errors.New("promotional code not found")
	ErrPaymentNotFound      = errors.New("payment transaction not found")
	ErrFailedPaymentGone    = errors.New("failed payment record not found")
	ErrStaleSubscription    = errors.New("subscription was modified concurrently")
)

type SubscriptionRepository interface {
	// Subscription operations
	Create(subscription *models.Subscription) error
	FindByID(id string) (*models.Subscription, error)
	FindCurrentByUser(userID string) (*models.Subscription, error)
	FindAllByUser(userID string) ([]models.Subscription, error)
	// UpdateVersioned persists the subscription only if the stored row still
	// carries the given version. On success the version is bumped in place.
	UpdateVersioned(subscription *models.Subscription, expectedVersion int) error
	HasUsedTrial(userID string) (bool, error)
	FindExpiredTrials(now time.Time) ([]models.Subscription, error)
	FindExpiredActive(now time.Time) ([]models.Subscription, error)
	FindDuePendingChanges(now time.Time) ([]models.Subscription, error)
	FindTrialsEndingBy(now, cutoff time.Time) ([]models.Subscription, error)

	// PromotionalCode operations
	CreatePromoCode(code *models.PromotionalCode) error
	FindPromoCode(code string) (*models.PromotionalCode, error)
	IncrementPromoUsage(code string) error

	// PaymentTransaction operations
	CreatePayment(payment *models.PaymentTransaction) error
	FindPaymentByID(id string) (*models.PaymentTransaction, error)
	FindPaymentsByUser(userID string, offset, limit int) ([]models.PaymentTransaction, int64, error)
	UpdatePaymentStatus(id string, status models.PaymentStatus, paidAt *time.Time) error
	// MarkPaymentPaid persists the settled status, provider reference and
	// paid-at timestamp from the struct.
	MarkPaymentPaid(payment *models.PaymentTransaction) error

	// FailedPayment operations
	CreateFailedPayment(fp *models.FailedPayment) error
	FindFailedPayment(paymentID string) (*models.FailedPayment, error)
	UpdateFailedPayment(fp *models.FailedPayment) error
	DeleteFailedPayment(paymentID string) error
	FindExpiredGracePeriods(now time.Time) ([]models.FailedPayment, error)
	FindGracePeriodsEndingBy(now, cutoff time.Time) ([]models.FailedPayment, error)
}

type SubscriptionRepositoryImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db}
}

// Subscription operations

func (r *SubscriptionRepositoryImpl) Create(subscription *models.Subscription) error {
	return r.db.Create(subscription).Error
}

func (r *SubscriptionRepositoryImpl) FindByID(id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindCurrentByUser(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND status IN ?", userID,
		[]models.SubscriptionStatus{
			models.SubscriptionStatusTrial,
			models.SubscriptionStatusActive,
			models.SubscriptionStatusCancelled,
		}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindAllByUser(userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) UpdateVersioned(subscription *models.Subscription, expectedVersion int) error {
	result := r.db.Model(&models.Subscription{}).
		Where("id = ? AND version = ?", subscription.ID, expectedVersion).
		Updates(map[string]interface{}{
			"tier":                   subscription.Tier,
			"status":                 subscription.Status,
			"billing_cycle":          subscription.BillingCycle,
			"price":                  subscription.Price,
			"start_date":             subscription.StartDate,
			"end_date":               subscription.EndDate,
			"trial_end_date":         subscription.TrialEndDate,
			"promotional_code":       subscription.PromotionalCode,
			"pending_tier":           subscription.PendingTier,
			"pending_tier_at":        subscription.PendingTierAt,
			"notification_sent_days": subscription.NotificationSentDays,
			"version":                expectedVersion + 1,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the row is gone or another writer bumped the version.
		var count int64
		if err := r.db.Model(&models.Subscription{}).
			Where("id = ?", subscription.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrSubscriptionNotFound
		}
		return ErrStaleSubscription
	}
	subscription.Version = expectedVersion + 1
	return nil
}

func (r *SubscriptionRepositoryImpl) HasUsedTrial(userID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND trial_end_date IS NOT NULL", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *SubscriptionRepositoryImpl) FindExpiredTrials(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND trial_end_date < ?",
		models.SubscriptionStatusTrial, now).
		Order("trial_end_date ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) FindExpiredActive(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status IN ? AND end_date IS NOT NULL AND end_date < ?",
		[]models.SubscriptionStatus{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusCancelled,
		}, now).
		Order("end_date ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) FindDuePendingChanges(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND pending_tier IS NOT NULL AND pending_tier_at <= ?",
		models.SubscriptionStatusActive, now).
		Order("pending_tier_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) FindTrialsEndingBy(now, cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND trial_end_date > ? AND trial_end_date <= ?",
		models.SubscriptionStatusTrial, now, cutoff).
		Order("trial_end_date ASC").
		Find(&subs).Error
	return subs, err
}

// PromotionalCode operations

func (r *SubscriptionRepositoryImpl) CreatePromoCode(code *models.PromotionalCode) error {
	return r.db.Create(code).Error
}

func (r *SubscriptionRepositoryImpl) FindPromoCode(code string) (*models.PromotionalCode, error) {
	var promo models.PromotionalCode
	err := r.db.Where("code = ?", code).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

func (r *SubscriptionRepositoryImpl) IncrementPromoUsage(code string) error {
	result := r.db.Model(&models.PromotionalCode{}).
		Where("code = ?", code).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPromoCodeNotFound
	}
	return nil
}

// PaymentTransaction operations

func (r *SubscriptionRepositoryImpl) CreatePayment(payment *models.PaymentTransaction) error {
	return r.db.Create(payment).Error
}

func (r *SubscriptionRepositoryImpl) FindPaymentByID(id string) (*models.PaymentTransaction, error) {
	var payment models.PaymentTransaction
	err := r.db.First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *SubscriptionRepositoryImpl) FindPaymentsByUser(userID string, offset, limit int) ([]models.PaymentTransaction, int64, error) {
	var payments []models.PaymentTransaction
	var total int64

	query := r.db.Model(&models.PaymentTransaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, total, err
}

func (r *SubscriptionRepositoryImpl) UpdatePaymentStatus(id string, status models.PaymentStatus, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}

	result := r.db.Model(&models.PaymentTransaction{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) MarkPaymentPaid(payment *models.PaymentTransaction) error {
	result := r.db.Model(&models.PaymentTransaction{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"status":       payment.Status,
			"provider_ref": payment.ProviderRef,
			"paid_at":      payment.PaidAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// FailedPayment operations

func (r *SubscriptionRepositoryImpl) CreateFailedPayment(fp *models.FailedPayment) error {
	return r.db.Create(fp).Error
}

func (r *SubscriptionRepositoryImpl) FindFailedPayment(paymentID string) (*models.FailedPayment, error) {
	var fp models.FailedPayment
	err := r.db.Where("payment_id = ?", paymentID).First(&fp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFailedPaymentGone
		}
		return nil, err
	}
	return &fp, nil
}

func (r *SubscriptionRepositoryImpl) UpdateFailedPayment(fp *models.FailedPayment) error {
	result := r.db.Model(fp).Updates(map[string]interface{}{
		"failure_count":          fp.FailureCount,
		"retry_attempts":         fp.RetryAttempts,
		"grace_period_end":       fp.GracePeriodEnd,
		"notification_sent_days": fp.NotificationSentDays,
		"updated_at":             time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFailedPaymentGone
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) DeleteFailedPayment(paymentID string) error {
	return r.db.Where("payment_id = ?", paymentID).Delete(&models.FailedPayment{}).Error
}

func (r *SubscriptionRepositoryImpl) FindExpiredGracePeriods(now time.Time) ([]models.FailedPayment, error) {
	var fps []models.FailedPayment
	err := r.db.Where("grace_period_end < ?", now).
		Order("grace_period_end ASC").
		Find(&fps).Error
	return fps, err
}

func (r *SubscriptionRepositoryImpl) FindGracePeriodsEndingBy(now, cutoff time.Time) ([]models.FailedPayment, error) {
	var fps []models.FailedPayment
	err := r.db.Where("grace_period_end > ? AND grace_period_end <= ?", now, cutoff).
		Order("grace_period_end ASC").
		Find(&fps).Error
	return fps, err
}
