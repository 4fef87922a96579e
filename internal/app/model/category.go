package model

import (
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	OwnerID   *uint     `gorm:"index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner    *User             `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
	Features []CategoryFeature `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"features,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// BeforeCreate derives a free slug from the name when none was given.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.Slug != "" {
		return nil
	}
	slug, err := uniqueSlug(tx, &Category{}, util.Slugify(c.Name), "category")
	if err != nil {
		return err
	}
	c.Slug = slug
	return nil
}

// uniqueSlug appends -2, -3, ... to base until no row of table uses it.
func uniqueSlug(tx *gorm.DB, table interface{}, base, fallback string) (string, error) {
	if base == "" {
		base = fallback
	}
	slug := base
	for counter := 2; ; counter++ {
		var count int64
		if err := tx.Session(&gorm.Session{NewDB: true}).Model(table).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
