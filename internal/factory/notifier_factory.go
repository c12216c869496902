package factory

import (
	"github.com/lsmadison/clinic-forms/internal/adapters/notify"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates notifiers
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{cfg: cfg, logger: logger}
}

// CreateNotifier creates an SMTP notifier, or a log-only notifier when email
// delivery is disabled
func (f *NotifierFactory) CreateNotifier() (core.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()
	if !notifyCfg.Enabled {
		f.logger.Info("Email notifications disabled, logging instead")
		return notify.NewLogNotifier(f.logger), nil
	}
	return notify.NewSMTPNotifier(notifyCfg, f.logger), nil
}
