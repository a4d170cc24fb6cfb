package email

// Email is a single outbound message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData carries the fields shared by every template.
type TemplateData struct {
	UserName     string
	Subject      string
	Message      string
	ActionURL    string
	ActionText   string
	SupportEmail string
	CompanyName  string
}

// InvitationData renders the event team invitation email.
type InvitationData struct {
	TemplateData
	EventTitle  string
	InviterName string
	Role        string
	ExpiresIn   string
}

// TrialData renders trial lifecycle emails.
type TrialData struct {
	TemplateData
	TierName     string
	TrialEndDate string
	DaysLeft     int
}

// PaymentFailedData renders dunning emails during the grace period.
type PaymentFailedData struct {
	TemplateData
	TierName       string
	Amount         float64
	GracePeriodEnd string
	AttemptsLeft   int
}

// SubscriptionChangeData renders upgrade/downgrade confirmations.
type SubscriptionChangeData struct {
	TemplateData
	OldTier     string
	NewTier     string
	EffectiveAt string
	Proration   float64
}

// Config holds SMTP connection settings.
type Config struct {
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	BaseURL   string
}

// Sender is the outbound email contract. Services depend on this
// interface so tests can swap in a recording fake.
type Sender interface {
	Send(email *Email) error
	SendVerification(to, name, token string) error
	SendInvitation(to string, data InvitationData) error
	SendTrialStarted(to, name, tierName, trialEndDate string) error
	SendTrialEndingSoon(to, name, tierName string, daysLeft int) error
	SendPaymentFailed(to string, data PaymentFailedData) error
	SendSubscriptionChanged(to string, data SubscriptionChangeData) error
	SendNotification(to, subject, message string) error
}
