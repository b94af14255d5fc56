package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaystack(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Paystack {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaystack(PaystackConfig{BaseURL: srv.URL + "/", SecretKey: "sk_test", Timeout: timeout})
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(30000), ToMinorUnits(decimal.RequireFromString("300.00")))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005")))
	assert.True(t, FromMinorUnits(30000).Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "19.99", FromMinorUnits(1999).String())
}

func TestPaystackInitialize(t *testing.T) {
	var got paystackInitializeRequest
	ps := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-123"}}`))
	}, time.Second)

	sess, err := ps.Initialize(context.Background(), InitializeRequest{
		Email:    "buyer@example.com",
		Amount:   decimal.RequireFromString("300.00"),
		Currency: "NGN",
		Metadata: map[string]string{"productId": "p1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ref-123", sess.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc", sess.RedirectURL)
	assert.Equal(t, int64(30000), got.Amount)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, "p1", got.Metadata["productId"])
}

func TestPaystackInitialize_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"provider rejects", http.StatusBadRequest, `{"status":false,"message":"Invalid key"}`, http.StatusBadRequest, "Invalid key"},
		{"server error without body", http.StatusInternalServerError, ``, http.StatusInternalServerError, "Internal Server Error"},
		{"status false on 200", http.StatusOK, `{"status":false,"message":"Duplicate Transaction Reference"}`, http.StatusOK, "Duplicate Transaction Reference"},
		{"missing reference", http.StatusOK, `{"status":true,"message":"ok","data":{}}`, http.StatusBadGateway, "response missing reference"},
		{"malformed body", http.StatusOK, `not json`, http.StatusOK, "malformed response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)

			_, err := ps.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})

			var gwErr *GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.wantStatus, gwErr.StatusCode)
			assert.Equal(t, tt.wantMsg, gwErr.Message)
			assert.Equal(t, ProviderPaystack, gwErr.Provider)
		})
	}
}

func TestPaystackInitialize_Timeout(t *testing.T) {
	release := make(chan struct{})
	ps := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := ps.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, gwErr.Timeout())
	assert.Equal(t, http.StatusGatewayTimeout, gwErr.StatusCode)
}

func TestPaystackInitialize_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	ps := NewPaystack(PaystackConfig{BaseURL: url, SecretKey: "sk_test", Timeout: time.Second})

	_, err := ps.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.False(t, gwErr.Timeout())
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
}

func TestPaystackVerify(t *testing.T) {
	ps := newTestPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/ref-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"Success","reference":"ref-123","amount":30000,"currency":"NGN"}}`))
	}, time.Second)

	v, err := ps.Verify(context.Background(), "ref-123")

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, v.Status)
	assert.Equal(t, "ref-123", v.Reference)
	assert.True(t, v.Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "NGN", v.Currency)
	assert.NotEmpty(t, v.Raw)
}

func TestPaystackVerifySignature(t *testing.T) {
	ps := NewPaystack(PaystackConfig{SecretKey: "sk_test"})
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ps.VerifySignature(body, sig))
	assert.False(t, ps.VerifySignature(body, ""))
	assert.False(t, ps.VerifySignature(body, "deadbeef"))
	assert.False(t, ps.VerifySignature([]byte(`{"event":"charge.failed"}`), sig))
}
