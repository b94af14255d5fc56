package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/models"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"github.com/yashrajoria/flash-sale-service/repository"
)

func newTestCoordinator(store *repository.MemoryStore, gw PaymentGateway, metrics MetricsRecorder) *ReservationCoordinator {
	c := NewReservationCoordinator(
		store.Products(), store.Inventory(), store.Payments(), store.Purchases(),
		gw, "NGN", metrics, nil,
	)
	c.now = func() time.Time { return saleNow }
	return c
}

func stockOf(t *testing.T, store *repository.MemoryStore, id string) int64 {
	t.Helper()
	stock, err := store.Inventory().GetStock(context.Background(), id)
	require.NoError(t, err)
	return stock
}

func TestInitiatePurchase(t *testing.T) {
	ctx := context.Background()
	activeStart, activeEnd := saleNow.Add(-time.Hour), saleNow.Add(time.Hour)

	t.Run("Success", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 5, "100.00", activeStart, activeEnd)
		gw := new(MockGateway)
		metrics := newRecordingMetrics()
		c := newTestCoordinator(store, gw, metrics)

		gw.On("Initialize", mock.Anything, mock.MatchedBy(func(req gateway.InitializeRequest) bool {
			return req.Amount.Equal(decimal.RequireFromString("300.00")) &&
				req.Email == "buyer@example.com" &&
				req.Currency == "NGN" &&
				req.Metadata["quantity"] == "3"
		})).Return(&gateway.Session{Reference: "ref-1", RedirectURL: "https://pay.example/ref-1"}, nil).Once()

		session, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", Email: "buyer@example.com", ProductID: "p1", Quantity: 3})

		require.NoError(t, err)
		assert.Equal(t, "ref-1", session.Reference)
		assert.Equal(t, "https://pay.example/ref-1", session.RedirectURL)
		assert.True(t, session.Amount.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, int64(2), stockOf(t, store, "p1"))

		payment, err := store.Payments().FindByReference(ctx, "ref-1")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, payment.Status)
		assert.Equal(t, "u1", payment.UserID)
		assert.Equal(t, "mockpay", payment.Provider)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(300)))

		purchase, err := store.Purchases().FindByPaymentID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), purchase.Quantity)
		assert.Equal(t, session.PurchaseID, purchase.ID)

		c.Flush()
		assert.Equal(t, 1, metrics.Count(awspkg.MetricInventoryReserved))
		assert.Equal(t, 1, metrics.Count(awspkg.MetricPurchasesInitiated))
		gw.AssertExpectations(t)
	})

	t.Run("Product not found", func(t *testing.T) {
		store := repository.NewMemoryStore()
		gw := new(MockGateway)
		c := newTestCoordinator(store, gw, nil)

		_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "missing", Quantity: 1})

		assert.ErrorIs(t, err, ErrProductNotFound)
		payments, purchases := store.Counts()
		assert.Zero(t, payments)
		assert.Zero(t, purchases)
		gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
	})

	t.Run("Sale not active", func(t *testing.T) {
		tests := []struct {
			name       string
			start, end time.Time
		}{
			{"not started", saleNow.Add(time.Minute), saleNow.Add(time.Hour)},
			{"ended", saleNow.Add(-2 * time.Hour), saleNow.Add(-time.Second)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := repository.NewMemoryStore()
				seedSaleProduct(store, "p1", 5, "100.00", tt.start, tt.end)
				gw := new(MockGateway)
				metrics := newRecordingMetrics()
				c := newTestCoordinator(store, gw, metrics)

				_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})

				assert.ErrorIs(t, err, ErrSaleNotActive)
				assert.Equal(t, int64(5), stockOf(t, store, "p1"))
				c.Flush()
				assert.Equal(t, 1, metrics.Count(awspkg.MetricReservationsRejected))
				gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Sale window bounds are inclusive", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 5, "100.00", saleNow, saleNow)
		c := newTestCoordinator(store, &sequentialGateway{}, nil)

		_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 1})

		assert.NoError(t, err)
	})

	t.Run("Insufficient stock", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 2, "100.00", activeStart, activeEnd)
		gw := new(MockGateway)
		c := newTestCoordinator(store, gw, nil)

		_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 3})

		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, int64(2), stockOf(t, store, "p1"))
		payments, purchases := store.Counts()
		assert.Zero(t, payments)
		assert.Zero(t, purchases)
		gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
	})

	t.Run("Exact remaining stock", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 3, "100.00", activeStart, activeEnd)
		c := newTestCoordinator(store, &sequentialGateway{}, nil)

		_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 3})

		assert.NoError(t, err)
		assert.Equal(t, int64(0), stockOf(t, store, "p1"))
	})

	t.Run("Invalid quantity", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 5, "100.00", activeStart, activeEnd)
		c := newTestCoordinator(store, new(MockGateway), nil)

		for _, q := range []int64{0, -1} {
			_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: q})
			assert.ErrorIs(t, err, ErrInvalidQuantity)
		}
		assert.Equal(t, int64(5), stockOf(t, store, "p1"))
	})

	t.Run("Gateway failure keeps the reservation", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedSaleProduct(store, "p1", 5, "100.00", activeStart, activeEnd)
		gw := new(MockGateway)
		metrics := newRecordingMetrics()
		c := newTestCoordinator(store, gw, metrics)

		gwErr := &gateway.GatewayError{Provider: "mockpay", Op: "initialize", StatusCode: http.StatusGatewayTimeout, Message: "request timed out"}
		gw.On("Initialize", mock.Anything, mock.Anything).Return(nil, gwErr).Once()

		_, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", ProductID: "p1", Quantity: 2})

		var got *gateway.GatewayError
		require.True(t, errors.As(err, &got))
		assert.True(t, got.Timeout())
		assert.Equal(t, int64(3), stockOf(t, store, "p1"), "stock is not restored after a gateway failure")
		payments, purchases := store.Counts()
		assert.Zero(t, payments)
		assert.Zero(t, purchases)
		c.Flush()
		assert.Equal(t, 1, metrics.Count(awspkg.MetricReservationsOrphaned))
		assert.Equal(t, 1, metrics.Count(awspkg.MetricGatewayErrors))
	})
}

// stalledMetrics blocks every call until its context is done.
type stalledMetrics struct{}

func (stalledMetrics) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

// deadlineGateway fails the way a real HTTP client does once ctx has expired.
type deadlineGateway struct{ MockGateway }

func (g *deadlineGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &gateway.GatewayError{Provider: "mockpay", Op: "initialize", StatusCode: http.StatusGatewayTimeout, Err: err}
	}
	return &gateway.Session{Reference: "ref-1", RedirectURL: "https://pay.example/ref-1"}, nil
}

func TestInitiatePurchase_SlowMetricsDoNotConsumeRequestDeadline(t *testing.T) {
	store := repository.NewMemoryStore()
	seedSaleProduct(store, "p1", 5, "100.00", saleNow.Add(-time.Hour), saleNow.Add(time.Hour))
	c := newTestCoordinator(store, &deadlineGateway{}, stalledMetrics{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	session, err := c.InitiatePurchase(ctx, PurchaseRequest{UserID: "u1", Email: "buyer@example.com", ProductID: "p1", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, "ref-1", session.Reference)
	assert.Equal(t, int64(4), stockOf(t, store, "p1"))
	payments, purchases := store.Counts()
	assert.Equal(t, 1, payments)
	assert.Equal(t, 1, purchases)
}

func TestInitiatePurchase_ConcurrentBuyersNeverOversell(t *testing.T) {
	const stock, buyers = 10, 100
	store := repository.NewMemoryStore()
	seedSaleProduct(store, "p1", stock, "25.50", saleNow.Add(-time.Hour), saleNow.Add(time.Hour))
	c := newTestCoordinator(store, &sequentialGateway{}, nil)

	var wg sync.WaitGroup
	var succeeded, rejected int64
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.InitiatePurchase(context.Background(), PurchaseRequest{UserID: "u", ProductID: "p1", Quantity: 1})
			switch {
			case err == nil:
				atomic.AddInt64(&succeeded, 1)
			case errors.Is(err, ErrInsufficientStock):
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(stock), succeeded)
	assert.Equal(t, int64(buyers-stock), rejected)
	assert.Equal(t, int64(0), stockOf(t, store, "p1"))
	payments, purchases := store.Counts()
	assert.Equal(t, stock, payments)
	assert.Equal(t, stock, purchases)
}
