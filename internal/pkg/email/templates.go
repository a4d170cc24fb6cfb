package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// TemplateManager renders the built-in HTML email templates.
type TemplateManager struct {
	templates map[string]*template.Template
}

const baseLayout = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background: #f5f5f7; margin: 0; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h2 style="color: #1a1a2e; margin-top: 0;">{{.Subject}}</h2>
    {{block "content" .}}{{end}}
    {{if .ActionURL}}
    <p style="margin: 28px 0;">
      <a href="{{.ActionURL}}" style="background: #4f46e5; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">{{.ActionText}}</a>
    </p>
    {{end}}
    <p style="color: #8e8e93; font-size: 13px; margin-bottom: 0;">
      {{.CompanyName}}{{if .SupportEmail}} &middot; <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>{{end}}
    </p>
  </div>
</body>
</html>`

var templateBodies = map[string]string{
	"verification": `
{{define "content"}}
<p>Hi {{.UserName}},</p>
<p>Confirm your email address to activate your Eventra account.</p>
{{end}}`,

	"invitation": `
{{define "content"}}
<p>Hi,</p>
<p>{{.InviterName}} invited you to join the team for <strong>{{.EventTitle}}</strong> as a {{.Role}}.</p>
<p>This invitation expires in {{.ExpiresIn}}.</p>
{{end}}`,

	"trial_started": `
{{define "content"}}
<p>Hi {{.UserName}},</p>
<p>Your free trial of the <strong>{{.TierName}}</strong> plan has started. It runs until {{.TrialEndDate}}.</p>
<p>No payment is required until the trial ends.</p>
{{end}}`,

	"trial_ending": `
{{define "content"}}
<p>Hi {{.UserName}},</p>
<p>Your <strong>{{.TierName}}</strong> trial ends in {{.DaysLeft}} days. Subscribe now to keep your plan features.</p>
{{end}}`,

	"payment_failed": `
{{define "content"}}
<p>Hi {{.UserName}},</p>
<p>We could not charge ${{printf "%.2f" .Amount}} for your <strong>{{.TierName}}</strong> subscription.</p>
<p>Please update your payment method before {{.GracePeriodEnd}}. {{.AttemptsLeft}} retry attempts remain before your subscription is paused.</p>
{{end}}`,

	"subscription_changed": `
{{define "content"}}
<p>Hi {{.UserName}},</p>
<p>Your subscription changed from <strong>{{.OldTier}}</strong> to <strong>{{.NewTier}}</strong>, effective {{.EffectiveAt}}.</p>
{{if gt .Proration 0.0}}<p>A prorated charge of ${{printf "%.2f" .Proration}} was applied for the current billing period.</p>{{end}}
{{end}}`,

	"notification": `
{{define "content"}}
<p>{{.Message}}</p>
{{end}}`,
}

func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{templates: make(map[string]*template.Template)}
	for name, body := range templateBodies {
		t, err := template.New(name).Parse(baseLayout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse base layout for %s: %w", name, err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tm.templates[name] = t
	}
	return tm, nil
}

func (m *TemplateManager) Render(name string, data interface{}) (string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template: %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
