package models

import "time"

// Account is a user of the contact book. Password holds the bcrypt hash and
// is never serialized.
type Account struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"userName" gorm:"column:user_name;type:varchar(100);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:CURRENT_TIMESTAMP;autoCreateTime:false"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;default:CURRENT_TIMESTAMP;autoUpdateTime:false"`
}

// TableName overrides the table name used by GORM.
func (Account) TableName() string {
	return "accounts"
}

// SafeAccount is the projection of an Account that may leave the service layer.
type SafeAccount struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Safe strips the stored credential.
func (a *Account) Safe() *SafeAccount {
	if a == nil {
		return nil
	}
	return &SafeAccount{
		ID:        a.ID,
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
