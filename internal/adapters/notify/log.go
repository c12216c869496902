package notify

import (
	"context"

	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// LogNotifier is a Notifier that only logs. It is used when email delivery
// is disabled so the rest of the service behaves identically.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// ContactReceived logs the contact submission
func (n *LogNotifier) ContactReceived(ctx context.Context, sub *core.ContactSubmission) error {
	n.logger.Info("Contact submission received",
		zap.String("id", sub.ID),
		zap.String("email", sub.Email))
	return nil
}

// IntakeReceived logs the intake submission
func (n *LogNotifier) IntakeReceived(ctx context.Context, sub *core.IntakeSubmission) error {
	n.logger.Info("Intake submission received",
		zap.String("id", sub.ID),
		zap.String("email", sub.Email))
	return nil
}

// SubscriberJoined logs the subscription
func (n *LogNotifier) SubscriberJoined(ctx context.Context, email string, isNew bool) error {
	n.logger.Info("Newsletter subscription",
		zap.String("email", email),
		zap.Bool("new", isNew))
	return nil
}

// SubscriberLeft logs the unsubscription
func (n *LogNotifier) SubscriberLeft(ctx context.Context, email string) error {
	n.logger.Info("Newsletter unsubscription", zap.String("email", email))
	return nil
}
