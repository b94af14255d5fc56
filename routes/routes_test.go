package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/yashrajoria/flash-sale-service/controllers"
	"github.com/yashrajoria/flash-sale-service/middleware"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/routes"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	return nil, errors.New("invalid token")
}

type countingHandler struct{ n int }

func (h *countingHandler) HandleGatewayEvent(ctx context.Context, event models.GatewayEvent) {
	h.n++
}

func setupRouterWithLimit(handler controllers.GatewayEventHandler, rateLimit gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.RegisterRoutes(r, routes.Controllers{
		Auth:     controllers.NewAuthController(nil, nil),
		Product:  controllers.NewProductController(nil, nil),
		Purchase: controllers.NewPurchaseController(nil, nil, nil, nil),
		Webhook:  controllers.NewWebhookController(handler, nil, nil, nil),
	}, rejectAll{}, rateLimit)
	return r
}

func setupRouter() *gin.Engine {
	return setupRouterWithLimit(&countingHandler{}, nil)
}

func TestHealth(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := setupRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/init/pay"},
		{http.MethodPost, "/api/v1/complete/ref-1"},
		{http.MethodGet, "/api/v1/leaderboard"},
		{http.MethodPost, "/api/v1/products"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer bogus")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestStripeWebhookDisabledByDefault(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitSkipsWebhooks(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.PerMinute(1), 1, time.Minute)
	defer limiter.Stop()
	handler := &countingHandler{}
	r := setupRouterWithLimit(handler, middleware.RateLimitMiddleware(limiter))

	post := func(path, body string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, post("/api/v1/webhook", `{"event":"charge.success","data":{"reference":"ref-1"}}`))
	}
	assert.Equal(t, 5, handler.n)

	assert.Equal(t, http.StatusBadRequest, post("/api/v1/login", `{}`))
	assert.Equal(t, http.StatusTooManyRequests, post("/api/v1/login", `{}`))
}
