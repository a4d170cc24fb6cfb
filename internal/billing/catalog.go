package billing

import "time"

// TierID names a subscription tier.
type TierID string

// Cycle names a billing cycle length.
type Cycle string

const (
	TierEssential TierID = "essential"
	TierShowcase  TierID = "showcase"
	TierSpotlight TierID = "spotlight"

	CycleMonthly Cycle = "monthly"
	CycleYearly  Cycle = "yearly"
	CycleTwoYear Cycle = "2year"
)

// TierInfo is the immutable catalog entry for one tier.
type TierInfo struct {
	ID            TierID            `json:"id"`
	Name          string            `json:"name"`
	Prices        map[Cycle]float64 `json:"prices"`
	Features      []string          `json:"features"`
	Limits        map[string]int    `json:"limits"`
	TrialEligible bool              `json:"is_trial_eligible"`
}

// Tiers is the single source of truth for tier pricing and limits.
// Every price shown or charged anywhere in the application comes from
// this table.
var Tiers = map[TierID]*TierInfo{
	TierEssential: {
		ID:     TierEssential,
		Name:   "Essential",
		Prices: map[Cycle]float64{CycleMonthly: 0, CycleYearly: 0, CycleTwoYear: 0},
		Features: []string{
			"public_profile", "event_browsing", "basic_messaging",
		},
		Limits: map[string]int{
			"active_events":    1,
			"team_members":     2,
			"document_uploads": 5,
		},
		TrialEligible: false,
	},
	TierShowcase: {
		ID:     TierShowcase,
		Name:   "Showcase",
		Prices: map[Cycle]float64{CycleMonthly: 29, CycleYearly: 299, CycleTwoYear: 499},
		Features: []string{
			"public_profile", "event_browsing", "basic_messaging",
			"featured_listing", "document_sharing", "testimonials",
		},
		Limits: map[string]int{
			"active_events":    10,
			"team_members":     10,
			"document_uploads": 100,
		},
		TrialEligible: true,
	},
	TierSpotlight: {
		ID:     TierSpotlight,
		Name:   "Spotlight",
		Prices: map[Cycle]float64{CycleMonthly: 69, CycleYearly: 699, CycleTwoYear: 1199},
		Features: []string{
			"public_profile", "event_browsing", "basic_messaging",
			"featured_listing", "document_sharing", "testimonials",
			"priority_placement", "analytics", "dedicated_support",
		},
		Limits: map[string]int{
			"active_events":    -1, // unlimited
			"team_members":     50,
			"document_uploads": 1000,
		},
		TrialEligible: true,
	},
}

// TierOrder fixes the upgrade/downgrade ranking.
var TierOrder = []TierID{TierEssential, TierShowcase, TierSpotlight}

// GetTier looks a tier up by id.
func GetTier(id TierID) (*TierInfo, bool) {
	t, ok := Tiers[id]
	return t, ok
}

// Rank returns the position of a tier in TierOrder, or -1 for an
// unknown tier. Upgrades must strictly increase the rank, downgrades
// strictly decrease it.
func Rank(id TierID) int {
	for i, t := range TierOrder {
		if t == id {
			return i
		}
	}
	return -1
}

// IsValidCycle reports whether c is a supported billing cycle.
func IsValidCycle(c Cycle) bool {
	switch c {
	case CycleMonthly, CycleYearly, CycleTwoYear:
		return true
	}
	return false
}

// MonthsInCycle returns the number of months a cycle covers.
func MonthsInCycle(c Cycle) int {
	switch c {
	case CycleYearly:
		return 12
	case CycleTwoYear:
		return 24
	default:
		return 1
	}
}

// PeriodEnd computes the end of a billing period starting at start.
func PeriodEnd(start time.Time, c Cycle) time.Time {
	return start.AddDate(0, MonthsInCycle(c), 0)
}
