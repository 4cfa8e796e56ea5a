package notifier

import (
	"context"

	"github.com/medigo/pharmacy-api/pkg/logger"
)

// Notifier delivers an SMS to a phone number. Delivery is best-effort:
// the outbox worker retries transient failures, but a notification is
// never allowed to block or roll back the transition that produced it.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// LogNotifier writes notifications to the log instead of a gateway.
// Used in development and as the fallback when no gateway is configured.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(_ context.Context, phone, message string) error {
	n.logger.Info("sms notification", "phone", phone, "message", message)
	return nil
}
