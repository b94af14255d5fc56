package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/flash-sale-service/apperrors"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/logger"
	"github.com/yashrajoria/flash-sale-service/models"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, event models.GatewayEvent)
}

// SignatureVerifier is satisfied by *gateway.Paystack.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// StripeWebhookParser is satisfied by *gateway.Stripe.
type StripeWebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*models.GatewayEvent, error)
}

// WebhookController accepts provider notifications. Once a request is
// authenticated the response is always 200; the outcome is only logged.
type WebhookController struct {
	handler  GatewayEventHandler
	paystack SignatureVerifier
	stripe   StripeWebhookParser
	logger   *zap.Logger
}

// NewWebhookController wires the webhook endpoints. A nil paystack verifier
// accepts unsigned Paystack webhooks; a nil stripe parser disables the
// Stripe endpoint.
func NewWebhookController(handler GatewayEventHandler, paystack SignatureVerifier, stripe StripeWebhookParser, logger *zap.Logger) *WebhookController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookController{handler: handler, paystack: paystack, stripe: stripe, logger: logger}
}

// Paystack handles POST /webhook.
func (wc *WebhookController) Paystack(c *gin.Context) {
	log := logger.FromContext(c, wc.logger)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		apperrors.Respond(c, apperrors.BadRequest("invalid webhook"))
		return
	}

	if wc.paystack != nil && !wc.paystack.VerifySignature(body, c.GetHeader(gateway.PaystackSignatureHeader)) {
		log.Warn("Paystack webhook signature verification failed")
		apperrors.Respond(c, apperrors.Unauthorized("invalid signature"))
		return
	}

	var event models.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("Ignoring malformed webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	log.Info("Processing Paystack webhook",
		zap.String("event", event.Event),
		zap.String("reference", event.Data.Reference),
	)
	wc.handler.HandleGatewayEvent(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// Stripe handles POST /stripe/webhook.
func (wc *WebhookController) Stripe(c *gin.Context) {
	log := logger.FromContext(c, wc.logger)

	if wc.stripe == nil {
		apperrors.Respond(c, apperrors.New(http.StatusNotFound, "Stripe webhooks are not enabled", nil))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		apperrors.Respond(c, apperrors.BadRequest("invalid webhook"))
		return
	}

	event, err := wc.stripe.ParseWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn("Stripe webhook signature verification failed", zap.Error(err))
		apperrors.Respond(c, apperrors.BadRequest("invalid webhook"))
		return
	}

	log.Info("Processing Stripe webhook",
		zap.String("event", event.Event),
		zap.String("reference", event.Data.Reference),
	)
	wc.handler.HandleGatewayEvent(c.Request.Context(), *event)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
