package events

import (
	"context"

	"github.com/yashrajoria/flash-sale-service/models"
	"go.uber.org/zap"
)

// LogPublisher only logs events. Used when EVENTS_BACKEND=none.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	p.logger.Debug("Payment event",
		zap.String("event_type", event.Type),
		zap.String("reference", event.Reference),
		zap.String("status", string(event.Status)),
	)
	return nil
}
