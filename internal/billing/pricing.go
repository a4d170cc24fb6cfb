package billing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrUnknownTier  = errors.New("unknown subscription tier")
	ErrUnknownCycle = errors.New("unknown billing cycle")
)

// DiscountType selects the promo semantics. A code is either a
// percentage or a fixed amount, never both.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is a validated promotional discount ready to apply.
type Discount struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}

// PricingInfo is the result of a price computation. Derived, never
// persisted.
type PricingInfo struct {
	Tier            TierID  `json:"tier"`
	BillingCycle    Cycle   `json:"billing_cycle"`
	BasePrice       float64 `json:"base_price"`
	DiscountApplied float64 `json:"discount_applied"`
	FinalPrice      float64 `json:"final_price"`
	Savings         float64 `json:"savings"`
}

// ComputePrice calculates the price of one billing period for a tier.
// Savings compares against paying month by month for the same span,
// not against the discount code. Pure function, no side effects.
func ComputePrice(tier TierID, cycle Cycle, discount *Discount) (*PricingInfo, error) {
	info, ok := GetTier(tier)
	if !ok {
		return nil, ErrUnknownTier
	}
	if !IsValidCycle(cycle) {
		return nil, ErrUnknownCycle
	}

	basePrice := info.Prices[cycle]

	var discountApplied float64
	if discount != nil {
		switch discount.Type {
		case DiscountPercentage:
			discountApplied = basePrice * discount.Value / 100
		case DiscountFixed:
			discountApplied = discount.Value
		}
		if discountApplied < 0 {
			discountApplied = 0
		}
		// Floor the final price at zero
		if discountApplied > basePrice {
			discountApplied = basePrice
		}
	}

	finalPrice := roundCents(basePrice - discountApplied)
	discountApplied = roundCents(discountApplied)

	monthly := info.Prices[CycleMonthly]
	savings := roundCents(monthly*float64(MonthsInCycle(cycle)) - finalPrice)

	return &PricingInfo{
		Tier:            tier,
		BillingCycle:    cycle,
		BasePrice:       basePrice,
		DiscountApplied: discountApplied,
		FinalPrice:      finalPrice,
		Savings:         savings,
	}, nil
}

// Proration computes the mid-cycle charge for moving up a tier:
// the unused share of the current period multiplied by the price
// difference of the two tiers on the current cycle.
func Proration(now, periodStart, periodEnd time.Time, fromTier, toTier TierID, cycle Cycle) (float64, error) {
	from, ok := GetTier(fromTier)
	if !ok {
		return 0, ErrUnknownTier
	}
	to, ok := GetTier(toTier)
	if !ok {
		return 0, ErrUnknownTier
	}
	if !IsValidCycle(cycle) {
		return 0, ErrUnknownCycle
	}

	daysInCycle := daysBetween(periodStart, periodEnd)
	if daysInCycle <= 0 {
		return 0, nil
	}
	daysRemaining := daysBetween(now, periodEnd)
	if daysRemaining <= 0 {
		return 0, nil
	}
	if daysRemaining > daysInCycle {
		daysRemaining = daysInCycle
	}

	priceDiff := to.Prices[cycle] - from.Prices[cycle]
	if priceDiff <= 0 {
		return 0, nil
	}

	return roundCents(float64(daysRemaining) / float64(daysInCycle) * priceDiff), nil
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
