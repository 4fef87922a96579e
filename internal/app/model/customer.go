package model

import "time"

// Customer is the shopping profile of an account. Created lazily on first cart access.
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User   User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Orders []Order `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}
