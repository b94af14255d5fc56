package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yashrajoria/flash-sale-service/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	productsCollection  = "products"
	paymentsCollection  = "payments"
	purchasesCollection = "purchases"
	accountsCollection  = "accounts"
)

// Money is stored as Decimal128 so Mongo never rounds through float64.

type productDoc struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Stock     int64                `bson:"stock"`
	Price     primitive.Decimal128 `bson:"price"`
	SaleStart time.Time            `bson:"saleStart"`
	SaleEnd   time.Time            `bson:"saleEnd"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

type paymentDoc struct {
	ID        string               `bson:"_id"`
	UserID    string               `bson:"userId"`
	ProductID string               `bson:"productId"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Currency  string               `bson:"currency"`
	Provider  string               `bson:"provider"`
	Reference string               `bson:"paymentRef"`
	Status    string               `bson:"status"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

type purchaseDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	ProductID string    `bson:"productId"`
	PaymentID string    `bson:"paymentId"`
	Quantity  int64     `bson:"quantity"`
	CreatedAt time.Time `bson:"createdAt"`
}

type accountDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Email       string    `bson:"email"`
	FirstName   string    `bson:"firstName"`
	LastName    string    `bson:"lastName"`
	PhoneNumber string    `bson:"phoneNumber,omitempty"`
	Password    string    `bson:"password"`
	Role        string    `bson:"role"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v, err)
	}
	return d, nil
}

func newProductDoc(p *models.Product) (*productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	return &productDoc{
		ID:        p.ID,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     price,
		SaleStart: p.SaleStart,
		SaleEnd:   p.SaleEnd,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d *productDoc) model() (*models.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &models.Product{
		ID:        d.ID,
		Name:      d.Name,
		Stock:     d.Stock,
		Price:     price,
		SaleStart: d.SaleStart,
		SaleEnd:   d.SaleEnd,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func newPaymentDoc(p *models.Payment) (*paymentDoc, error) {
	amount, err := toDecimal128(p.Amount)
	if err != nil {
		return nil, err
	}
	return &paymentDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		ProductID: p.ProductID,
		Amount:    amount,
		Currency:  p.Currency,
		Provider:  p.Provider,
		Reference: p.Reference,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d *paymentDoc) model() (*models.Payment, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Payment{
		ID:        d.ID,
		UserID:    d.UserID,
		ProductID: d.ProductID,
		Amount:    amount,
		Currency:  d.Currency,
		Provider:  d.Provider,
		Reference: d.Reference,
		Status:    models.PaymentStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func newAccountDoc(a *models.Account) *accountDoc {
	return &accountDoc{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
		Password:    a.Password,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d *accountDoc) model() *models.Account {
	return &models.Account{
		ID:          d.ID,
		Name:        d.Name,
		Email:       d.Email,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		PhoneNumber: d.PhoneNumber,
		Password:    d.Password,
		Role:        d.Role,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
