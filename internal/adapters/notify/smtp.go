// Package notify sends plain-text email notifications for accepted
// submissions over SMTP.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// SMTPNotifier is an SMTP implementation of the Notifier interface. Every
// method sends synchronously; callers decide whether to fire and forget.
type SMTPNotifier struct {
	cfg    config.NotifyConfig
	logger *zap.Logger
	send   func(from, to string, msg []byte) error
}

// NewSMTPNotifier creates an SMTP notifier from the notify configuration
func NewSMTPNotifier(cfg config.NotifyConfig, logger *zap.Logger) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, logger: logger}
	n.send = n.sendSMTP
	return n
}

func (n *SMTPNotifier) sendSMTP(from, to string, msg []byte) error {
	var auth sasl.Client
	if n.cfg.SMTPUsername != "" {
		auth = sasl.NewPlainClient("", n.cfg.SMTPUsername, n.cfg.SMTPPassword)
	}
	return smtp.SendMail(n.cfg.SMTPAddress, auth, from, []string{to}, bytes.NewReader(msg))
}

// deliver renders the template and sends the resulting message to a single
// recipient.
func (n *SMTPNotifier) deliver(to, subject string, tmpl *template.Template, data any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))

	if err := n.send(n.cfg.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	n.logger.Debug("Sent notification email",
		zap.String("template", tmpl.Name()),
		zap.String("subject", subject))
	return nil
}

type contactEmail struct {
	*core.ContactSubmission
	SiteName string
}

type intakeEmail struct {
	*core.IntakeSubmission
	SiteName string
}

type subscriberEmail struct {
	Email    string
	IsNew    bool
	SiteName string
	BaseURL  string
}

// ContactReceived notifies the admin of a new contact submission and sends
// the submitter a confirmation.
func (n *SMTPNotifier) ContactReceived(ctx context.Context, sub *core.ContactSubmission) error {
	data := contactEmail{ContactSubmission: sub, SiteName: n.cfg.SiteName}
	if err := n.deliver(n.cfg.AdminTo, "New contact form submission", adminContactTmpl, data); err != nil {
		return err
	}
	return n.deliver(sub.Email, fmt.Sprintf("We received your message - %s", n.cfg.SiteName),
		userContactTmpl, data)
}

// IntakeReceived notifies the admin of a new intake submission and sends the
// submitter a confirmation.
func (n *SMTPNotifier) IntakeReceived(ctx context.Context, sub *core.IntakeSubmission) error {
	data := intakeEmail{IntakeSubmission: sub, SiteName: n.cfg.SiteName}
	if err := n.deliver(n.cfg.AdminTo, "New intake form submission", adminIntakeTmpl, data); err != nil {
		return err
	}
	return n.deliver(sub.Email, fmt.Sprintf("Your intake form - %s", n.cfg.SiteName),
		userIntakeTmpl, data)
}

// SubscriberJoined welcomes a new subscriber and notifies the admin. A
// re-subscription only notifies the admin.
func (n *SMTPNotifier) SubscriberJoined(ctx context.Context, email string, isNew bool) error {
	data := subscriberEmail{
		Email:    email,
		IsNew:    isNew,
		SiteName: n.cfg.SiteName,
		BaseURL:  n.cfg.BaseURL,
	}
	if err := n.deliver(n.cfg.AdminTo, "Newsletter subscription", adminNewsletterTmpl, data); err != nil {
		return err
	}
	if !isNew {
		return nil
	}
	return n.deliver(email, fmt.Sprintf("Welcome to the %s newsletter", n.cfg.SiteName),
		welcomeTmpl, data)
}

// SubscriberLeft confirms an unsubscription to the departing subscriber
func (n *SMTPNotifier) SubscriberLeft(ctx context.Context, email string) error {
	data := subscriberEmail{
		Email:    email,
		SiteName: n.cfg.SiteName,
		BaseURL:  n.cfg.BaseURL,
	}
	return n.deliver(email, fmt.Sprintf("You have been unsubscribed - %s", n.cfg.SiteName),
		unsubscribeTmpl, data)
}
