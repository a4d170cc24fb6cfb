package validator

import (
	"eventra_backend/internal/billing"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules wires the billing catalog into struct validation
// so that tier and cycle checks happen before any handler logic runs.
func registerCustomRules(v *validator.Validate) error {
	if err := v.RegisterValidation("tier", validTier); err != nil {
		return err
	}
	if err := v.RegisterValidation("billing_cycle", validBillingCycle); err != nil {
		return err
	}
	return nil
}

func validTier(fl validator.FieldLevel) bool {
	_, ok := billing.GetTier(billing.TierID(fl.Field().String()))
	return ok
}

func validBillingCycle(fl validator.FieldLevel) bool {
	return billing.IsValidCycle(billing.Cycle(fl.Field().String()))
}
