package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a flash-sale item. Stock is only ever reduced through a
// conditional decrement in the inventory store.
type Product struct {
	ID        string          `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name      string          `json:"name" gorm:"type:varchar(255);index;not null"`
	Stock     int64           `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(20,2);not null"`
	SaleStart time.Time       `json:"saleStart" gorm:"not null"`
	SaleEnd   time.Time       `json:"saleEnd" gorm:"not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// SaleActive reports whether t falls inside [SaleStart, SaleEnd].
func (p *Product) SaleActive(t time.Time) bool {
	return !t.Before(p.SaleStart) && !t.After(p.SaleEnd)
}
