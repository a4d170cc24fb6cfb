package dto

import "time"

// PricingRequest drives both GET /subscriptions/pricing (query) and
// POST /subscriptions/pricing/calculate (body).
type PricingRequest struct {
	Tier            string `json:"tier" form:"tier" validate:"required,tier"`
	BillingCycle    string `json:"billing_cycle" form:"billing_cycle" validate:"required,billing_cycle"`
	PromotionalCode string `json:"promotional_code" form:"promotional_code"`
}

type PricingResponse struct {
	Tier            string  `json:"tier"`
	BillingCycle    string  `json:"billing_cycle"`
	TotalPrice      float64 `json:"total_price"`
	DiscountApplied float64 `json:"discount_applied"`
	FinalPrice      float64 `json:"final_price"`
	Savings         float64 `json:"savings"`
}

type ValidatePromoRequest struct {
	Code string `json:"code" validate:"required"`
	Tier string `json:"tier" validate:"required,tier"`
}

type ValidatePromoResponse struct {
	Valid         bool    `json:"valid"`
	DiscountType  string  `json:"discount_type,omitempty"`
	DiscountValue float64 `json:"discount_value,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

type StartTrialRequest struct {
	Tier string `json:"tier" validate:"required,tier"`
}

type SubscribeRequest struct {
	Tier            string `json:"tier" validate:"required,tier"`
	BillingCycle    string `json:"billing_cycle" validate:"required,billing_cycle"`
	PromotionalCode string `json:"promotional_code"`
}

type ChangeTierRequest struct {
	NewTier string `json:"new_tier" validate:"required,tier"`
}

type SubscriptionResponse struct {
	ID              string     `json:"id"`
	Tier            string     `json:"tier"`
	Status          string     `json:"status"`
	BillingCycle    string     `json:"billing_cycle"`
	Price           float64    `json:"price"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	TrialEndDate    *time.Time `json:"trial_end_date,omitempty"`
	PromotionalCode *string    `json:"promotional_code,omitempty"`
	PendingTier     *string    `json:"pending_tier,omitempty"`
	PendingTierAt   *time.Time `json:"pending_tier_at,omitempty"`
}

type UpgradeResponse struct {
	Subscription    SubscriptionResponse `json:"subscription"`
	ProrationAmount float64              `json:"proration_amount"`
}

type DowngradeResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	EffectiveAt  time.Time            `json:"effective_at"`
	// The UI shows these before the user confirms the feature loss.
	FeaturesLost []string `json:"features_lost"`
}

type RetryPaymentResponse struct {
	Success           bool   `json:"success"`
	PaymentID         string `json:"payment_id,omitempty"`
	RemainingAttempts int    `json:"remaining_attempts"`
}
