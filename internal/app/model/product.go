package model

import (
	"time"

	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	Title       string              `gorm:"type:varchar(255);not null" json:"title"`
	Slug        string              `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	CategoryID  uint                `gorm:"not null;index" json:"category_id"`
	ProductType ProductType         `gorm:"type:varchar(20);not null;default:'generic'" json:"product_type"`
	Price       decimal.Decimal     `gorm:"type:decimal(9,2);not null" json:"price"`
	Description string              `gorm:"type:text" json:"description"`
	Image       string              `json:"image"`
	OwnerID     *uint               `gorm:"index" json:"owner_id"`
	Rating      decimal.NullDecimal `gorm:"type:decimal(3,1)" json:"rating"`
	LikeCount   int                 `gorm:"not null;default:0" json:"likes"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Category Category         `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Owner    *User            `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
	Features []ProductFeature `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// BeforeCreate derives a free slug from the title when none was given.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ProductType == "" {
		p.ProductType = ProductTypeGeneric
	}
	if p.Slug != "" {
		return nil
	}
	slug, err := uniqueSlug(tx, &Product{}, util.Slugify(p.Title), "product")
	if err != nil {
		return err
	}
	p.Slug = slug
	return nil
}

// FeatureMap renders attached features as name -> "value unit".
// Features and their CategoryFeature must be preloaded.
func (p *Product) FeatureMap() map[string]string {
	features := make(map[string]string, len(p.Features))
	for _, f := range p.Features {
		features[f.Feature.FeatureName] = f.Display()
	}
	return features
}
