package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/flash-sale-service/models"
)

const ProviderStripe = "stripe"

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
}

// Stripe drives hosted Checkout Sessions. The session ID is the payment
// reference.
type Stripe struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripe(cfg StripeConfig) *Stripe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return &Stripe{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

func (s *Stripe) Name() string { return ProviderStripe }

func (s *Stripe) Initialize(ctx context.Context, req InitializeRequest) (*Session, error) {
	name := req.Description
	if name == "" {
		name = "Flash sale purchase"
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(req.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(ToMinorUnits(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeError("initialize", err)
	}
	return &Session{Reference: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *Stripe) Verify(ctx context.Context, reference string) (*Verification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(reference, params)
	if err != nil {
		return nil, stripeError("verify", err)
	}
	raw, _ := json.Marshal(sess)
	return &Verification{
		Reference: sess.ID,
		Status:    checkoutStatus(sess),
		Amount:    FromMinorUnits(sess.AmountTotal),
		Currency:  strings.ToUpper(string(sess.Currency)),
		Raw:       raw,
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the
// checkout events into gateway charge events. Other event types come back
// with their Stripe type so the reconciliation engine logs and drops them.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*models.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook signature: %w", err)
	}

	var kind string
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		kind = models.GatewayChargeSuccess
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		kind = models.GatewayChargeFailed
	default:
		return &models.GatewayEvent{Event: string(event.Type)}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	// A completed session with delayed payment methods is not yet paid.
	if kind == models.GatewayChargeSuccess && sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return &models.GatewayEvent{Event: string(event.Type)}, nil
	}
	return &models.GatewayEvent{
		Event: kind,
		Data: models.GatewayEventData{
			Reference: sess.ID,
			Amount:    sess.AmountTotal,
			Status:    checkoutStatus(&sess),
			Currency:  strings.ToUpper(string(sess.Currency)),
		},
	}, nil
}

func checkoutStatus(sess *stripe.CheckoutSession) string {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusSuccess
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return StatusFailed
	default:
		return StatusPending
	}
}

func stripeError(op string, err error) *GatewayError {
	var se *stripe.Error
	if errors.As(err, &se) {
		status := se.HTTPStatusCode
		if status == 0 {
			return transportError(ProviderStripe, op, err)
		}
		return &GatewayError{Provider: ProviderStripe, Op: op, StatusCode: status, Message: se.Msg, Err: err}
	}
	return transportError(ProviderStripe, op, err)
}
