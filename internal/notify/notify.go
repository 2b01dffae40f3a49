// Package notify delivers account emails. The concrete Notifier is chosen
// once at startup from the mail configuration.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/config"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP notifier when mail is enabled and a NullNotifier
// otherwise.
func New(cfg *config.MailConfig, log *zap.Logger) Notifier {
	if !cfg.Enabled {
		log.Info("mail disabled, account emails will not be delivered")
		return NewNullNotifier(log)
	}
	return NewSMTPNotifier(cfg, log)
}
