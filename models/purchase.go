package models

import "time"

// Purchase records that stock was reserved for one attempt. It becomes a
// confirmed sale once the linked payment reaches PaymentSuccess.
type Purchase struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	UserID    string    `json:"userId" gorm:"type:varchar(64);index;not null"`
	ProductID string    `json:"productId" gorm:"type:varchar(64);index;not null"`
	PaymentID string    `json:"paymentId" gorm:"type:varchar(64);uniqueIndex;not null"`
	Quantity  int64     `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
}
