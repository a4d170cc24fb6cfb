package email

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	config    Config
	templates *TemplateManager
	dialer    *gomail.Dialer
}

func NewSMTPSender(config Config) (Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}

	tm, err := NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}

	return &SMTPSender{
		config:    config,
		templates: tm,
		dialer:    gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.Username, config.Password),
	}, nil
}

func (s *SMTPSender) Send(email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.Body != "" {
		msg.SetBody("text/plain", email.Body)
		if email.HTMLBody != "" {
			msg.AddAlternative("text/html", email.HTMLBody)
		}
	} else {
		msg.SetBody("text/html", email.HTMLBody)
	}

	return s.dialer.DialAndSend(msg)
}

func (s *SMTPSender) sendTemplate(to []string, subject, templateName string, data interface{}) error {
	htmlBody, err := s.templates.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.Send(&Email{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}

func (s *SMTPSender) SendVerification(to, name, token string) error {
	data := TemplateData{
		UserName:     name,
		Subject:      "Confirm your email",
		ActionURL:    fmt.Sprintf("%s/verify?token=%s", s.config.BaseURL, token),
		ActionText:   "Confirm Email",
		SupportEmail: s.config.FromEmail,
		CompanyName:  "Eventra",
	}
	return s.sendTemplate([]string{to}, "Confirm your email", "verification", data)
}

func (s *SMTPSender) SendInvitation(to string, data InvitationData) error {
	data.Subject = fmt.Sprintf("You're invited to %s", data.EventTitle)
	data.ActionText = "Accept Invitation"
	data.SupportEmail = s.config.FromEmail
	data.CompanyName = "Eventra"
	return s.sendTemplate([]string{to}, data.Subject, "invitation", data)
}

func (s *SMTPSender) SendTrialStarted(to, name, tierName, trialEndDate string) error {
	data := TrialData{
		TemplateData: TemplateData{
			UserName:     name,
			Subject:      "Your trial has started",
			ActionURL:    fmt.Sprintf("%s/subscriptions", s.config.BaseURL),
			ActionText:   "Manage Subscription",
			SupportEmail: s.config.FromEmail,
			CompanyName:  "Eventra",
		},
		TierName:     tierName,
		TrialEndDate: trialEndDate,
	}
	return s.sendTemplate([]string{to}, data.Subject, "trial_started", data)
}

func (s *SMTPSender) SendTrialEndingSoon(to, name, tierName string, daysLeft int) error {
	data := TrialData{
		TemplateData: TemplateData{
			UserName:     name,
			Subject:      "Your trial is ending soon",
			ActionURL:    fmt.Sprintf("%s/subscriptions", s.config.BaseURL),
			ActionText:   "Subscribe Now",
			SupportEmail: s.config.FromEmail,
			CompanyName:  "Eventra",
		},
		TierName: tierName,
		DaysLeft: daysLeft,
	}
	return s.sendTemplate([]string{to}, data.Subject, "trial_ending", data)
}

func (s *SMTPSender) SendPaymentFailed(to string, data PaymentFailedData) error {
	data.Subject = "Payment failed"
	data.ActionURL = fmt.Sprintf("%s/billing", s.config.BaseURL)
	data.ActionText = "Update Payment Method"
	data.SupportEmail = s.config.FromEmail
	data.CompanyName = "Eventra"
	return s.sendTemplate([]string{to}, data.Subject, "payment_failed", data)
}

func (s *SMTPSender) SendSubscriptionChanged(to string, data SubscriptionChangeData) error {
	data.Subject = "Your subscription has changed"
	data.SupportEmail = s.config.FromEmail
	data.CompanyName = "Eventra"
	return s.sendTemplate([]string{to}, data.Subject, "subscription_changed", data)
}

func (s *SMTPSender) SendNotification(to, subject, message string) error {
	data := TemplateData{
		Subject:      subject,
		Message:      message,
		SupportEmail: s.config.FromEmail,
		CompanyName:  "Eventra",
	}
	return s.sendTemplate([]string{to}, subject, "notification", data)
}
