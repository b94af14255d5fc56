package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/flash-sale-service/models"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"go.uber.org/zap"
)

// SNSPublisher publishes PaymentEvents to an SNS topic. The event type is
// attached as the "eventType" message attribute.
type SNSPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSPublisher(sns awspkg.SNSPublisher, topicArn string, logger *zap.Logger) *SNSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SNSPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

func (p *SNSPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}
	if err := p.sns.Publish(ctx, p.topicArn, payload, map[string]string{"eventType": event.Type}); err != nil {
		return err
	}
	p.logger.Info("Payment event published to SNS",
		zap.String("event_type", event.Type),
		zap.String("reference", event.Reference),
	)
	return nil
}
