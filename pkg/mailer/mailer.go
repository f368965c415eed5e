/**
 * @description
 * SMTP mailer. Renders email templates to plain text bodies and sends them
 * through the configured SMTP relay.
 */
package mailer

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

// templates maps template names to plain-text bodies. The map keys mirror the
// Template field on email events.
var templates = map[string]string{
	"welcome":                "Hi {{.username}},\n\nWelcome to VyaparLink! Your account is ready.\n",
	"business_live":          "Your listing {{.business}} is now live on VyaparLink.\n",
	"review_ack":             "Hi {{.name}},\n\nThanks for your review. It will appear once approved.\n",
	"review_visible":         "Hi {{.name}},\n\nYour review has been approved and is now visible.\n",
	"enquiry_ack":            "Hi {{.name}},\n\nWe received your enquiry for {{.business}}. The business will get back to you soon.\n",
	"enquiry_owner":          "You have a new enquiry for {{.business}} from {{.from}}. Log in to respond.\n",
	"coupon":                 "Here is your discount coupon: {{.code}}\n",
	"payment_proof_uploaded": "A payment proof was uploaded for subscription {{.subscription_id}} and is awaiting verification.\n",
	"payout_requested":       "A payout of {{.amount}} was requested and is being processed.\n",
	"payout_completed":       "Your payout of {{.amount}} has been completed. Transaction: {{.transaction_id}}\n",
}

// SMTPMailer sends emails through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPMailer creates a new mailer.
func NewSMTPMailer(host string, port int, user, password, sender string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		sender: sender,
	}
}

// Send renders the named template with data and delivers it to recipient.
func (m *SMTPMailer) Send(recipient, subject, templateName string, data map[string]string) error {
	body, err := renderTemplate(templateName, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", templateName, recipient, err)
	}
	return nil
}

func renderTemplate(name string, data map[string]string) (string, error) {
	text, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
