package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/models"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrSaleNotActive      = errors.New("sale is not active")
	ErrInsufficientStock  = errors.New("stock unavailable")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// PaymentNotSuccessfulError reports a verified payment that did not succeed.
// Status is the provider's status string.
type PaymentNotSuccessfulError struct {
	Reference string
	Status    string
}

func (e *PaymentNotSuccessfulError) Error() string {
	return fmt.Sprintf("Payment not successful; Status:%s", e.Status)
}

// PaymentGateway is implemented by gateway.Paystack and gateway.Stripe.
type PaymentGateway interface {
	Name() string
	Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.Session, error)
	Verify(ctx context.Context, reference string) (*gateway.Verification, error)
}

// EventPublisher delivers PaymentEvents to downstream consumers.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

// MetricsRecorder is satisfied by *aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type noopMetrics struct{}

func (noopMetrics) RecordCount(context.Context, string, map[string]string) error { return nil }

// PurchaseRequest asks to reserve Quantity units of ProductID for UserID.
// Email is forwarded to the gateway for the checkout page.
type PurchaseRequest struct {
	UserID    string
	Email     string
	ProductID string
	Quantity  int64
}

// PurchaseSession is what the buyer needs to complete payment.
type PurchaseSession struct {
	Reference   string          `json:"reference"`
	RedirectURL string          `json:"authorization_url"`
	PaymentID   string          `json:"paymentId"`
	PurchaseID  string          `json:"purchaseId"`
	Amount      decimal.Decimal `json:"amount"`
}

// FinalizeResult is returned when a payment ends in success.
// AlreadyFinalized is set when nothing was written by this call.
type FinalizeResult struct {
	Payment          *models.Payment
	AlreadyFinalized bool
}

type clock func() time.Time
