package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
)

// MemoryStore keeps every collection in process memory. It backs
// STORE_DRIVER=memory for local runs and the service tests. Conditional
// operations run under the store mutex, which plays the role of the
// database's single-document atomicity.
type MemoryStore struct {
	mu          sync.Mutex
	products    map[string]*models.Product
	payments    map[string]*models.Payment // keyed by reference
	purchases   map[string]*models.Purchase
	accounts    map[string]*models.Account
	leaderboard map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:    make(map[string]*models.Product),
		payments:    make(map[string]*models.Payment),
		purchases:   make(map[string]*models.Purchase),
		accounts:    make(map[string]*models.Account),
		leaderboard: make(map[string]time.Time),
	}
}

// Products returns the store as a ProductRepository.
func (s *MemoryStore) Products() ProductRepository { return memoryProducts{s} }

// Inventory returns the store as an InventoryStore over product stock.
func (s *MemoryStore) Inventory() InventoryStore { return memoryInventory{s} }

func (s *MemoryStore) Payments() PaymentRepository { return memoryPayments{s} }

func (s *MemoryStore) Purchases() PurchaseRepository { return memoryPurchases{s} }

func (s *MemoryStore) Accounts() AccountRepository { return memoryAccounts{s} }

func (s *MemoryStore) Leaderboard() LeaderboardRepository { return memoryLeaderboard{s} }

// Counts reports collection sizes; tests use it to assert "no writes".
func (s *MemoryStore) Counts() (payments, purchases int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments), len(s.purchases)
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memoryProducts) FindAll(ctx context.Context) ([]*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryProducts) Create(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[product.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	cp := *product
	r.s.products[product.ID] = &cp
	return nil
}

type memoryInventory struct{ s *MemoryStore }

func (r memoryInventory) ReserveStock(ctx context.Context, productID string, quantity int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Stock < quantity {
		return 0, ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC()
	return p.Stock, nil
}

func (r memoryInventory) GetStock(ctx context.Context, productID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, ErrNotFound
	}
	return p.Stock, nil
}

func (r memoryInventory) SetStock(ctx context.Context, productID string, stock int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return ErrNotFound
	}
	p.Stock = stock
	return nil
}

type memoryPayments struct{ s *MemoryStore }

func (r memoryPayments) Create(ctx context.Context, payment *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.Reference]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	payment.CreatedAt, payment.UpdatedAt = now, now
	cp := *payment
	r.s.payments[payment.Reference] = &cp
	return nil
}

func (r memoryPayments) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[reference]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memoryPayments) TransitionStatus(ctx context.Context, reference string, to models.PaymentStatus) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[reference]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return nil, ErrAlreadyFinalized
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

type memoryPurchases struct{ s *MemoryStore }

func (r memoryPurchases) Create(ctx context.Context, purchase *models.Purchase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.purchases[purchase.ID]; ok {
		return ErrDuplicate
	}
	purchase.CreatedAt = time.Now().UTC()
	cp := *purchase
	r.s.purchases[purchase.ID] = &cp
	return nil
}

func (r memoryPurchases) FindByPaymentID(ctx context.Context, paymentID string) (*models.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.purchases {
		if p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memoryAccounts struct{ s *MemoryStore }

func (r memoryAccounts) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == account.Email {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	cp := *account
	r.s.accounts[account.ID] = &cp
	return nil
}

func (r memoryAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memoryAccounts) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*models.Account, len(ids))
	for _, id := range ids {
		if a, ok := r.s.accounts[id]; ok {
			cp := *a
			out[id] = &cp
		}
	}
	return out, nil
}

type memoryLeaderboard struct{ s *MemoryStore }

func (r memoryLeaderboard) Record(ctx context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if prev, ok := r.s.leaderboard[userID]; ok && !at.Before(prev) {
		return nil
	}
	r.s.leaderboard[userID] = at
	return nil
}

func (r memoryLeaderboard) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.LeaderboardEntry, 0, len(r.s.leaderboard))
	for id, at := range r.s.leaderboard {
		out = append(out, models.LeaderboardEntry{UserID: id, Timestamp: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
