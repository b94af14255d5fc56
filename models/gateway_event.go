package models

import "encoding/json"

const (
	GatewayChargeSuccess = "charge.success"
	GatewayChargeFailed  = "charge.failed"
)

// GatewayEvent is a provider notification about a charge, as delivered to
// the webhook endpoint or relayed through the webhook queue.
type GatewayEvent struct {
	Event string           `json:"event"`
	Data  GatewayEventData `json:"data"`
}

type GatewayEventData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	Currency  string          `json:"currency,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
