package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProviderPaystack = "paystack"

	// PaystackSignatureHeader carries hex(HMAC-SHA512(body, secret key)).
	PaystackSignatureHeader = "x-paystack-signature"
)

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Paystack talks to the Paystack transaction API.
type Paystack struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystack(cfg PaystackConfig) *Paystack {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Paystack{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *Paystack) Name() string { return ProviderPaystack }

// paystackEnvelope is the common {status, message, data} response shape.
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeRequest struct {
	Email    string            `json:"email"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
}

// Initialize creates a transaction and returns its reference and checkout URL.
func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*Session, error) {
	body := paystackInitializeRequest{
		Email:    req.Email,
		Amount:   ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Metadata: req.Metadata,
	}
	var data paystackInitializeData
	if err := p.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.Reference == "" {
		return nil, &GatewayError{Provider: ProviderPaystack, Op: "initialize", StatusCode: http.StatusBadGateway, Message: "response missing reference"}
	}
	return &Session{Reference: data.Reference, RedirectURL: data.AuthorizationURL}, nil
}

// Verify fetches the provider's current status for reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	var raw json.RawMessage
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := p.do(ctx, "verify", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var data paystackVerifyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &GatewayError{Provider: ProviderPaystack, Op: "verify", StatusCode: http.StatusBadGateway, Message: "malformed verify payload", Err: err}
	}
	return &Verification{
		Reference: data.Reference,
		Status:    strings.ToLower(data.Status),
		Amount:    FromMinorUnits(data.Amount),
		Currency:  data.Currency,
		Raw:       raw,
	}, nil
}

// VerifySignature checks the webhook signature header against body.
func (p *Paystack) VerifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (p *Paystack) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &GatewayError{Provider: ProviderPaystack, Op: op, Message: "encode request", Err: err}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return &GatewayError{Provider: ProviderPaystack, Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return transportError(ProviderPaystack, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ProviderPaystack, op, err)
	}

	var env paystackEnvelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &GatewayError{Provider: ProviderPaystack, Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &GatewayError{Provider: ProviderPaystack, Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if !env.Status {
		return &GatewayError{Provider: ProviderPaystack, Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &GatewayError{Provider: ProviderPaystack, Op: op, StatusCode: resp.StatusCode, Message: "malformed response data", Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}
