package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/flash-sale-service/models"
)

const testWebhookSecret = "whsec_test"

func signedStripePayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeParseWebhook(t *testing.T) {
	s := NewStripe(StripeConfig{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})

	tests := []struct {
		name       string
		payload    string
		wantEvent  string
		wantRef    string
		wantStatus string
	}{
		{
			name:       "paid checkout",
			payload:    `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid","status":"complete","amount_total":30000,"currency":"usd"}}}`,
			wantEvent:  models.GatewayChargeSuccess,
			wantRef:    "cs_1",
			wantStatus: StatusSuccess,
		},
		{
			name:       "expired checkout",
			payload:    `{"id":"evt_2","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","status":"expired","amount_total":30000,"currency":"usd"}}}`,
			wantEvent:  models.GatewayChargeFailed,
			wantRef:    "cs_2",
			wantStatus: StatusFailed,
		},
		{
			name:      "completed but unpaid",
			payload:   `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_3","object":"checkout.session","payment_status":"unpaid","status":"complete"}}}`,
			wantEvent: "checkout.session.completed",
		},
		{
			name:      "unrelated event",
			payload:   `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			wantEvent: "customer.created",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, header := signedStripePayload(t, tt.payload)

			ev, err := s.ParseWebhook(body, header)

			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, ev.Event)
			assert.Equal(t, tt.wantRef, ev.Data.Reference)
			assert.Equal(t, tt.wantStatus, ev.Data.Status)
		})
	}
}

func TestStripeParseWebhook_BadSignature(t *testing.T) {
	s := NewStripe(StripeConfig{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	body, _ := signedStripePayload(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := s.ParseWebhook(body, "t=1,v1=bogus")

	assert.ErrorContains(t, err, "stripe webhook signature")
}
