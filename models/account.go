package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID          string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);index"`
	Email       string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	FirstName   string    `json:"firstName" gorm:"type:varchar(100)"`
	LastName    string    `json:"lastName" gorm:"type:varchar(100)"`
	PhoneNumber string    `json:"phoneNumber,omitempty" gorm:"type:varchar(32)"`
	Password    string    `json:"-" gorm:"not null"`
	Role        string    `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DisplayName is "first last", falling back to Name.
func (a *Account) DisplayName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	default:
		return a.Name
	}
}
