package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type BuyingType string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "is_ready"
	OrderStatusCompleted  OrderStatus = "completed"

	BuyingTypeSelf     BuyingType = "self"
	BuyingTypeDelivery BuyingType = "delivery"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusNew:        0,
	OrderStatusInProgress: 1,
	OrderStatusReady:      2,
	OrderStatusCompleted:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionTo allows only forward moves along new -> in_progress -> is_ready -> completed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	return ok && to > from
}

func (t BuyingType) Valid() bool {
	return t == BuyingTypeSelf || t == BuyingTypeDelivery
}

// Order is a snapshot taken from a cart at checkout. Contact fields are copied
// from the submitted form and never follow later profile edits.
type Order struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	CustomerID uint            `gorm:"not null;index" json:"customer_id"`
	CartID     uint            `gorm:"not null;uniqueIndex" json:"cart_id"`
	FirstName  string          `gorm:"type:varchar(255);not null" json:"first_name"`
	LastName   string          `gorm:"type:varchar(255);not null" json:"last_name"`
	Phone      string          `gorm:"type:varchar(20);not null" json:"phone"`
	Address    string          `gorm:"type:varchar(1024)" json:"address"`
	BuyingType BuyingType      `gorm:"type:varchar(20);not null;default:'self'" json:"buying_type"`
	OrderDate  time.Time       `json:"order_date"`
	Comment    string          `gorm:"type:text" json:"comment"`
	Status     OrderStatus     `gorm:"type:varchar(20);not null;default:'new'" json:"status"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	Cart     *Cart     `gorm:"foreignKey:CartID;constraint:OnDelete:RESTRICT" json:"cart,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}
