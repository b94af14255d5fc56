package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/repository"
)

// --- Mocks for Dependencies ---

type MockGateway struct{ mock.Mock }

func (m *MockGateway) Name() string { return "mockpay" }

func (m *MockGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Session), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Verification), args.Error(1)
}

// sequentialGateway hands out unique references without expectations, for
// concurrency tests.
type sequentialGateway struct {
	n int64
}

func (g *sequentialGateway) Name() string { return "seqpay" }

func (g *sequentialGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.Session, error) {
	n := atomic.AddInt64(&g.n, 1)
	ref := fmt.Sprintf("ref-%d", n)
	return &gateway.Session{Reference: ref, RedirectURL: "https://pay.example/" + ref}, nil
}

func (g *sequentialGateway) Verify(ctx context.Context, reference string) (*gateway.Verification, error) {
	return &gateway.Verification{Reference: reference, Status: gateway.StatusSuccess}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
	err    error
}

func (p *recordingPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []models.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PaymentEvent(nil), p.events...)
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[metricName]++
	return nil
}

func (m *recordingMetrics) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

type MockAccountRepository struct{ mock.Mock }

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Account), args.Error(1)
}

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) GenerateToken(userID, email, role string) (string, error) {
	args := m.Called(userID, email, role)
	return args.String(0), args.Error(1)
}

// --- Fixtures ---

var saleNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedSaleProduct(store *repository.MemoryStore, id string, stock int64, price string, start, end time.Time) {
	_ = store.Products().Create(context.Background(), &models.Product{
		ID:        id,
		Name:      "sneakers",
		Stock:     stock,
		Price:     decimal.RequireFromString(price),
		SaleStart: start,
		SaleEnd:   end,
	})
}

func seedPendingPayment(store *repository.MemoryStore, ref, userID string) {
	_ = store.Payments().Create(context.Background(), &models.Payment{
		ID:        "pay-" + ref,
		UserID:    userID,
		ProductID: "p1",
		Amount:    decimal.RequireFromString("300.00"),
		Currency:  "NGN",
		Provider:  "mockpay",
		Reference: ref,
		Status:    models.PaymentPending,
	})
}
