package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
	PaymentFraud   PaymentStatus = "fraud"
)

// IsTerminal reports whether no further transition may leave this status.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentFailed || s == PaymentFraud
}

// Payment tracks one gateway charge for one reservation.
type Payment struct {
	ID        string          `json:"id" gorm:"type:varchar(64);primaryKey"`
	UserID    string          `json:"userId" gorm:"type:varchar(64);index;not null"`
	ProductID string          `json:"productId" gorm:"type:varchar(64);index;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	Currency  string          `json:"currency" gorm:"type:varchar(10);not null"`
	Provider  string          `json:"provider" gorm:"type:varchar(20);not null"`
	Reference string          `json:"reference" gorm:"type:varchar(255);uniqueIndex;not null"`
	Status    PaymentStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}
