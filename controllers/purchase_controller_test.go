package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/flash-sale-service/controllers"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/middleware"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/services"
)

// ---- concrete mocks ----

type stubInitiator struct {
	session *services.PurchaseSession
	err     error
	got     services.PurchaseRequest
}

func (s *stubInitiator) InitiatePurchase(ctx context.Context, req services.PurchaseRequest) (*services.PurchaseSession, error) {
	s.got = req
	return s.session, s.err
}

type stubFinalizer struct {
	result *services.FinalizeResult
	err    error
	userID string
}

func (s *stubFinalizer) FinalizePurchase(ctx context.Context, reference, userID string) (*services.FinalizeResult, error) {
	s.userID = userID
	return s.result, s.err
}

type stubLeaderboard struct {
	entries []models.LeaderboardEntry
	limit   int64
}

func (s *stubLeaderboard) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	s.limit = limit
	return s.entries, nil
}

// ---- helpers ----

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func asUser(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserKey, userID)
		c.Set(middleware.EmailKey, email)
		c.Next()
	}
}

func setupPurchaseRouter(pc *controllers.PurchaseController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser("u1", "buyer@example.com"))
	r.POST("/init/pay", pc.InitPay)
	r.POST("/complete/:reference", pc.Complete)
	r.GET("/leaderboard", pc.Leaderboard)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestInitPay(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		initiator := &stubInitiator{session: &services.PurchaseSession{
			Reference:   "ref-1",
			RedirectURL: "https://checkout.example/ref-1",
			Amount:      decimal.RequireFromString("300.00"),
		}}
		r := setupPurchaseRouter(controllers.NewPurchaseController(initiator, &stubFinalizer{}, &stubLeaderboard{}, nil))

		w := doJSON(r, http.MethodPost, "/init/pay", `{"productId":"p1","quantity":3}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "Kindly complete the payment", env.Message)
		assert.Contains(t, string(env.Data), `"authorization_url":"https://checkout.example/ref-1"`)
		assert.Equal(t, "u1", initiator.got.UserID)
		assert.Equal(t, "buyer@example.com", initiator.got.Email)
		assert.Equal(t, int64(3), initiator.got.Quantity)
	})

	t.Run("Validation", func(t *testing.T) {
		r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{}, &stubFinalizer{}, &stubLeaderboard{}, nil))

		for _, body := range []string{`{"productId":"p1","quantity":0}`, `{"quantity":1}`, `nope`} {
			w := doJSON(r, http.MethodPost, "/init/pay", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.False(t, decodeEnvelope(t, w).Success)
		}
	})

	errorCases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not found", services.ErrProductNotFound, http.StatusNotFound, "Product not found"},
		{"sale closed", services.ErrSaleNotActive, http.StatusBadRequest, "Sale is not active"},
		{"sold out", services.ErrInsufficientStock, http.StatusBadRequest, "Stock unavailable"},
		{"gateway", fmt.Errorf("initialize payment: %w", &gateway.GatewayError{StatusCode: http.StatusGatewayTimeout}), http.StatusBadGateway, "Payment provider timed out"},
		{"internal", fmt.Errorf("save payment: boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{err: tc.err}, &stubFinalizer{}, &stubLeaderboard{}, nil))

			w := doJSON(r, http.MethodPost, "/init/pay", `{"productId":"p1","quantity":1}`)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantMsg, decodeEnvelope(t, w).Error.Message)
		})
	}
}

func TestComplete(t *testing.T) {
	payment := &models.Payment{Reference: "ref-1", Status: models.PaymentSuccess, UpdatedAt: time.Now()}

	tests := []struct {
		name     string
		fin      *stubFinalizer
		wantCode int
		wantMsg  string
	}{
		{"first completion", &stubFinalizer{result: &services.FinalizeResult{Payment: payment}}, http.StatusOK, "payment updated successfully"},
		{"repeat completion", &stubFinalizer{result: &services.FinalizeResult{Payment: payment, AlreadyFinalized: true}}, http.StatusOK, "payment already updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{}, tt.fin, &stubLeaderboard{}, nil))

			w := doJSON(r, http.MethodPost, "/complete/ref-1", "")

			assert.Equal(t, tt.wantCode, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.wantMsg, env.Message)
			assert.Contains(t, string(env.Data), `"status":"success"`)
			assert.Equal(t, "u1", tt.fin.userID)
		})
	}

	t.Run("Not successful", func(t *testing.T) {
		fin := &stubFinalizer{err: &services.PaymentNotSuccessfulError{Reference: "ref-1", Status: "failed"}}
		r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{}, fin, &stubLeaderboard{}, nil))

		w := doJSON(r, http.MethodPost, "/complete/ref-1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Payment not successful; Status:failed", decodeEnvelope(t, w).Error.Message)
	})

	t.Run("Unknown payment", func(t *testing.T) {
		fin := &stubFinalizer{err: services.ErrPaymentNotFound}
		r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{}, fin, &stubLeaderboard{}, nil))

		w := doJSON(r, http.MethodPost, "/complete/ref-1", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLeaderboard(t *testing.T) {
	lb := &stubLeaderboard{entries: []models.LeaderboardEntry{{UserID: "u1", Name: "Ada Obi", Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}}}
	r := setupPurchaseRouter(controllers.NewPurchaseController(&stubInitiator{}, &stubFinalizer{}, lb, nil))

	w := doJSON(r, http.MethodGet, "/leaderboard?limit=500", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(100), lb.limit)
	env := decodeEnvelope(t, w)
	assert.JSONEq(t, `[{"name":"Ada Obi","timestamp":"2026-03-01T12:00:00Z"}]`, string(env.Data))
}
