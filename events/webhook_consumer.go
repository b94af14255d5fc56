package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/flash-sale-service/models"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"go.uber.org/zap"
)

// GatewayEventHandler is satisfied by *services.ReconciliationEngine.
type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, event models.GatewayEvent)
}

// Poller is satisfied by *aws.SQSConsumer.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// snsEnvelope is the wrapper SNS adds when a topic fans out to SQS without
// raw message delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// WebhookConsumer feeds gateway events relayed through SQS into the same
// handler the HTTP webhook uses.
type WebhookConsumer struct {
	poller  Poller
	handler GatewayEventHandler
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewWebhookConsumer(poller Poller, handler GatewayEventHandler, metrics *awspkg.MetricsClient, logger *zap.Logger) *WebhookConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookConsumer{poller: poller, handler: handler, metrics: metrics, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *WebhookConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting gateway webhook consumer (SQS)")
	if err := c.poller.StartPolling(ctx, c.HandleMessage); err != nil && ctx.Err() == nil {
		c.logger.Error("Webhook consumer stopped", zap.Error(err))
	}
}

// HandleMessage decodes one queue body. Malformed bodies return an error so
// the queue's redrive policy can move them aside; everything that decodes is
// acknowledged, whatever the reconciliation outcome.
func (c *WebhookConsumer) HandleMessage(ctx context.Context, body string) error {
	event, err := DecodeGatewayEvent([]byte(body))
	if err != nil {
		c.logger.Warn("Invalid gateway event message", zap.Error(err))
		return err
	}
	c.handler.HandleGatewayEvent(ctx, *event)
	_ = c.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"Queue": "gateway-webhooks"})
	return nil
}

// DecodeGatewayEvent accepts either a raw gateway event or one wrapped in an
// SNS notification envelope.
func DecodeGatewayEvent(body []byte) (*models.GatewayEvent, error) {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Type == "Notification" && env.Message != "" {
		body = []byte(env.Message)
	}

	var event models.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode gateway event: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("decode gateway event: missing event type")
	}
	return &event, nil
}
