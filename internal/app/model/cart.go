package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is a customer's (or anonymous session's) in-progress order.
// TotalItemCount and TotalPrice are derived from Items and are only written
// by the cart service inside the transaction that mutates Items.
type Cart struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	OwnerID        *uint           `gorm:"uniqueIndex:idx_carts_open_owner,where:in_order = false" json:"owner_id"`
	SessionToken   *string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	TotalItemCount int             `gorm:"not null;default:0" json:"total_item_count"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0" json:"total_price"`
	InOrder        bool            `gorm:"not null;default:false;index" json:"in_order"`
	IsAnonymous    bool            `gorm:"not null;default:false" json:"is_anonymous"`
	Version        int             `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Owner *Customer  `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	CartID     uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	CustomerID *uint           `gorm:"index" json:"customer_id"`
	ProductID  uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0" json:"line_total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// BeforeSave keeps LineTotal equal to Quantity x Product.Price.
// Product must be loaded; callers in the cart service always load it.
func (i *CartItem) BeforeSave(tx *gorm.DB) error {
	if i.Quantity <= 0 {
		return fmt.Errorf("cart item quantity must be positive, got %d", i.Quantity)
	}
	if i.Product.ID != 0 {
		i.LineTotal = i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
	}
	return nil
}
