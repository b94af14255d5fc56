package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/flash-sale-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The gorm repositories back STORE_DRIVER=postgres. They expect a *gorm.DB
// opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.

func translateGormError(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// GormProductRepository stores products and their stock column. It satisfies
// both ProductRepository and InventoryStore.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translateGormError(err, "find product")
	}
	return &p, nil
}

func (r *GormProductRepository) FindAll(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, translateGormError(err, "find products")
	}
	return products, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return translateGormError(err, "create product")
	}
	return nil
}

// ReserveStock runs UPDATE ... SET stock = stock - q WHERE id = ? AND
// stock >= q RETURNING stock. Zero returned rows means the guard failed.
func (r *GormProductRepository) ReserveStock(ctx context.Context, productID string, quantity int64) (int64, error) {
	var updated models.Product
	res := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock"}}}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return 0, fmt.Errorf("reserve stock for %s: %w", productID, res.Error)
	}
	if res.RowsAffected > 0 {
		return updated.Stock, nil
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("classify reserve miss for %s: %w", productID, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientStock
}

func (r *GormProductRepository) GetStock(ctx context.Context, productID string) (int64, error) {
	p, err := r.FindByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func (r *GormProductRepository) SetStock(ctx context.Context, productID string, stock int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", stock)
	if res.Error != nil {
		return fmt.Errorf("set stock for %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return translateGormError(err, "create payment")
	}
	return nil
}

func (r *GormPaymentRepository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, translateGormError(err, "find payment")
	}
	return &p, nil
}

// TransitionStatus updates the row only while status = 'pending' and reads
// the new row back through RETURNING in the same statement.
func (r *GormPaymentRepository) TransitionStatus(ctx context.Context, reference string, to models.PaymentStatus) (*models.Payment, error) {
	var updated models.Payment
	res := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("reference = ? AND status = ?", reference, models.PaymentPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("transition payment %s: %w", reference, res.Error)
	}
	if res.RowsAffected > 0 {
		return &updated, nil
	}

	if _, err := r.FindByReference(ctx, reference); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyFinalized
}

type GormPurchaseRepository struct {
	db *gorm.DB
}

func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return translateGormError(err, "create purchase")
	}
	return nil
}

func (r *GormPurchaseRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&p).Error; err != nil {
		return nil, translateGormError(err, "find purchase")
	}
	return &p, nil
}

type GormAccountRepository struct {
	db *gorm.DB
}

func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return translateGormError(err, "create account")
	}
	return nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, translateGormError(err, "find account")
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translateGormError(err, "find account")
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Account, error) {
	out := make(map[string]*models.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, translateGormError(err, "find accounts")
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

// GormLeaderboardRepository ranks users by their earliest successful payment,
// joining purchases to payments, so Record has nothing to write.
type GormLeaderboardRepository struct {
	db *gorm.DB
}

func NewGormLeaderboardRepository(db *gorm.DB) *GormLeaderboardRepository {
	return &GormLeaderboardRepository{db: db}
}

func (r *GormLeaderboardRepository) Record(ctx context.Context, userID string, at time.Time) error {
	return nil
}

func (r *GormLeaderboardRepository) Top(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	var rows []struct {
		UserID  string
		FirstAt time.Time
	}
	q := r.db.WithContext(ctx).
		Table("purchases").
		Select("purchases.user_id AS user_id, MIN(payments.updated_at) AS first_at").
		Joins("JOIN payments ON payments.id = purchases.payment_id").
		Where("payments.status = ?", models.PaymentSuccess).
		Group("purchases.user_id").
		Order("first_at ASC")
	if limit > 0 {
		q = q.Limit(int(limit))
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.LeaderboardEntry{UserID: row.UserID, Timestamp: row.FirstAt})
	}
	return entries, nil
}
