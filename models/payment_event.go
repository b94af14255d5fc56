package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventPaymentFraud     = "payment_fraud"
)

// PaymentEvent is published after a payment leaves PaymentPending.
type PaymentEvent struct {
	Type      string          `json:"type"`
	PaymentID string          `json:"payment_id"`
	Reference string          `json:"reference"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    PaymentStatus   `json:"status"`
	Source    string          `json:"source"` // "webhook" or "verify"
	Timestamp time.Time       `json:"timestamp"`
}

// EventTypeFor maps a terminal status to its event type.
func EventTypeFor(status PaymentStatus) string {
	switch status {
	case PaymentSuccess:
		return EventPaymentSucceeded
	case PaymentFraud:
		return EventPaymentFraud
	default:
		return EventPaymentFailed
	}
}
