// Package gateway holds the outbound payment-provider clients. Clients never
// retry; every transport or provider failure comes back as *GatewayError.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/shopspring/decimal"
)

// Provider status strings normalized across clients.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusReversed = "reversed"
	StatusFraud    = "fraud"
	StatusPending  = "pending"
)

var minorUnitFactor = decimal.NewFromInt(100)

type InitializeRequest struct {
	Email    string
	Amount   decimal.Decimal // major units
	Currency string
	// Description is shown on hosted checkout pages where supported.
	Description string
	Metadata    map[string]string
}

// Session is a created payment session the buyer is redirected to.
type Session struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"authorization_url"`
}

// Verification is the provider's authoritative view of a charge.
type Verification struct {
	Reference string
	Status    string
	Amount    decimal.Decimal // major units
	Currency  string
	Raw       json.RawMessage
}

// GatewayError is returned for every failed provider call. Callers must not
// assume the provider applied any side effect.
type GatewayError struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed (status %d): %s: %v", e.Provider, e.Op, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Provider, e.Op, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Timeout reports whether the call hit the client deadline.
func (e *GatewayError) Timeout() bool { return e.StatusCode == http.StatusGatewayTimeout }

// ToMinorUnits converts a major-unit amount to the integer minor units the
// providers expect (kobo, cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// transportError wraps a failed round trip, mapping deadline expiry to a
// 504 so callers can tell timeouts apart.
func transportError(provider, op string, err error) *GatewayError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GatewayError{
			Provider:   provider,
			Op:         op,
			StatusCode: http.StatusGatewayTimeout,
			Message:    "request timed out",
			Err:        err,
		}
	}
	return &GatewayError{
		Provider:   provider,
		Op:         op,
		StatusCode: http.StatusBadGateway,
		Message:    "transport failure",
		Err:        err,
	}
}
