package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription is one user's subscription record. Exactly one current
// record per user is authoritative for feature gating; superseded rows
// are kept for billing history, never hard-deleted.
type Subscription struct {
	BaseModel
	UserID          string             `gorm:"not null;index"`
	Tier            string             `gorm:"type:varchar(20);not null"`
	Status          SubscriptionStatus `gorm:"type:varchar(20);default:'inactive'"`
	BillingCycle    string             `gorm:"type:varchar(10);not null"`
	Price           float64            // snapshot at time of billing
	StartDate       time.Time
	EndDate         *time.Time
	TrialEndDate    *time.Time
	PromotionalCode *string
	// Downgrades apply at the next cycle; the worker swaps the tier at
	// PendingTierAt.
	PendingTier   *string
	PendingTierAt *time.Time
	// Days-before-trial-end on which an ending-soon notice went out.
	NotificationSentDays datatypes.JSON `gorm:"type:jsonb"`
	// Version guards concurrent tier changes (optimistic concurrency).
	Version int `gorm:"default:0"`
}

// IsCurrent reports whether this record still gates features: active
// and trial always do, cancelled does until the paid period runs out.
func (s *Subscription) IsCurrent(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrial:
		return true
	case SubscriptionStatusCancelled:
		return s.EndDate != nil && s.EndDate.After(now)
	}
	return false
}

// PromotionalCode is a discount token. The pricing path only reads it;
// UsageCount is incremented at subscription creation.
type PromotionalCode struct {
	BaseModel
	Code          string         `gorm:"uniqueIndex;not null"`
	DiscountType  string         `gorm:"type:varchar(16);not null"` // percentage | fixed
	DiscountValue float64        `gorm:"not null"`
	ExpiresAt     time.Time      `gorm:"not null"`
	UsageLimit    int            `gorm:"not null"`
	UsageCount    int            `gorm:"default:0"`
	EligibleTiers datatypes.JSON `gorm:"type:jsonb"` // ["showcase", "spotlight"]
	IsActive      bool           `gorm:"default:true"`
}

type PaymentTransaction struct {
	BaseModel
	UserID         string `gorm:"not null;index"`
	SubscriptionID string `gorm:"index"`
	Amount         float64
	Currency       string        `gorm:"default:'USD'"`
	Kind           string        `gorm:"type:varchar(20)"` // subscription, proration, retry
	Status         PaymentStatus `gorm:"type:varchar(16);default:'pending'"`
	ProviderRef    string        `gorm:"index"` // charge id at the processor
	FailureCode    string
	PaidAt         *time.Time
}

// FailedPayment tracks the bounded retry window after a declined
// charge. Removed once the payment recovers.
type FailedPayment struct {
	BaseModel
	PaymentID            string         `gorm:"not null;uniqueIndex"`
	SubscriptionID       string         `gorm:"not null;index"`
	UserID               string         `gorm:"not null;index"`
	FailureCount         int            `gorm:"default:1"`
	RetryAttempts        int            `gorm:"default:0"` // capped at billing.max_retries (3)
	GracePeriodEnd       time.Time      `gorm:"not null"`
	NotificationSentDays datatypes.JSON `gorm:"type:jsonb"` // [1, 3, 5]
}

// InGracePeriod reports whether retries are still permitted
// time-wise.
func (f *FailedPayment) InGracePeriod(now time.Time) bool {
	return f.GracePeriodEnd.After(now)
}
