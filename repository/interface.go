package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyFinalized  = errors.New("payment already finalized")
	ErrDuplicate         = errors.New("record already exists")
)

// InventoryStore owns product stock counts. ReserveStock must check and
// decrement in one conditional operation against the backing store.
type InventoryStore interface {
	ReserveStock(ctx context.Context, productID string, quantity int64) (int64, error)
	GetStock(ctx context.Context, productID string) (int64, error)
	SetStock(ctx context.Context, productID string, stock int64) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context) ([]*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
}

// PaymentRepository persists payments. TransitionStatus moves a payment out
// of PaymentPending with a single conditional update and returns
// ErrAlreadyFinalized when the payment exists but is no longer pending.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	TransitionStatus(ctx context.Context, reference string, to models.PaymentStatus) (*models.Payment, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Purchase, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Account, error)
}

// LeaderboardRepository ranks buyers by their first confirmed purchase.
// Record keeps the earliest timestamp seen for a user.
type LeaderboardRepository interface {
	Record(ctx context.Context, userID string, at time.Time) error
	Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error)
}
