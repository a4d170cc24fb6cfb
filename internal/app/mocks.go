package app

import (
	"context"

	"eventra_backend/internal/logger"
	"eventra_backend/internal/payments"
	"eventra_backend/internal/pkg/email"

	"github.com/google/uuid"
)

// MockEmailSender is used in tests and local development when no SMTP
// credentials are configured. It logs instead of sending.
type MockEmailSender struct{}

func (m *MockEmailSender) Send(e *email.Email) error {
	logger.Info("[mock email] send", "to", e.To, "subject", e.Subject)
	return nil
}

func (m *MockEmailSender) SendVerification(to, name, token string) error {
	logger.Info("[mock email] verification", "to", to, "token", token)
	return nil
}

func (m *MockEmailSender) SendInvitation(to string, data email.InvitationData) error {
	logger.Info("[mock email] invitation", "to", to, "event", data.EventTitle)
	return nil
}

func (m *MockEmailSender) SendTrialStarted(to, name, tierName, trialEndDate string) error {
	logger.Info("[mock email] trial started", "to", to, "tier", tierName)
	return nil
}

func (m *MockEmailSender) SendTrialEndingSoon(to, name, tierName string, daysLeft int) error {
	logger.Info("[mock email] trial ending", "to", to, "days_left", daysLeft)
	return nil
}

func (m *MockEmailSender) SendPaymentFailed(to string, data email.PaymentFailedData) error {
	logger.Info("[mock email] payment failed", "to", to, "attempts_left", data.AttemptsLeft)
	return nil
}

func (m *MockEmailSender) SendSubscriptionChanged(to string, data email.SubscriptionChangeData) error {
	logger.Info("[mock email] subscription changed", "to", to, "from", data.OldTier, "to_tier", data.NewTier)
	return nil
}

func (m *MockEmailSender) SendNotification(to, subject, message string) error {
	logger.Info("[mock email] notification", "to", to, "subject", subject)
	return nil
}

// SandboxProcessor approves every charge. Stands in for the card
// provider until a real integration is configured.
type SandboxProcessor struct{}

func (p *SandboxProcessor) Charge(ctx context.Context, req *payments.ChargeRequest) (*payments.ChargeResult, error) {
	ref := "sandbox_" + uuid.NewString()
	logger.Info("[sandbox payment] charge approved",
		"user_id", req.UserID,
		"amount", req.Amount,
		"currency", req.Currency,
		"idempotency_key", req.IdempotencyKey,
		"provider_ref", ref,
	)
	return &payments.ChargeResult{ProviderRef: ref}, nil
}
