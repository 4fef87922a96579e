package model

import "time"

// UserProductRelation holds one user's like, bookmark and rating for a product.
// Product.Rating and Product.LikeCount are aggregated from these rows.
type UserProductRelation struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_product_relation" json:"user_id"`
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_user_product_relation;index" json:"product_id"`
	Like        bool      `gorm:"not null;default:false" json:"like"`
	InBookmarks bool      `gorm:"not null;default:false" json:"in_bookmarks"`
	Rate        *int      `json:"rate"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserProductRelation) TableName() string {
	return "user_product_relations"
}

const (
	MinRate = 1
	MaxRate = 5
)
