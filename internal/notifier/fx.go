package notifier

import (
	"github.com/kanisahq/kanisa/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notifier",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects the SMS gateway provider when one is configured and
// the no-op provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.SMS.GatewayURL == "" {
		log.Named("notifier").Info("no sms gateway configured, notifications disabled")
		return NoOp{}
	}
	return NewSMS(SMSConfig{
		GatewayURL: cfg.SMS.GatewayURL,
		APIKey:     cfg.SMS.APIKey,
		SenderID:   cfg.SMS.SenderID,
	})
}
