package payments

import (
	"context"
	"errors"
)

// Decline codes surfaced by the card processor. Anything else is a
// provider/transport failure.
var (
	ErrCardDeclined      = errors.New("card_declined")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrCardExpired       = errors.New("card_expired")
)

// IsDecline reports whether the error is a card decline (the charge
// was processed and refused) rather than a provider failure.
func IsDecline(err error) bool {
	return errors.Is(err, ErrCardDeclined) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrCardExpired)
}

type ChargeRequest struct {
	UserID      string
	Amount      float64
	Currency    string
	Description string
	// IdempotencyKey dedupes repeated submissions of the same charge.
	IdempotencyKey string
}

type ChargeResult struct {
	ProviderRef string // charge id at the processor
}

// Processor is the external card-payment collaborator. The billing
// code owns attempt counting and grace windows; the processor owns the
// actual charge.
type Processor interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}
