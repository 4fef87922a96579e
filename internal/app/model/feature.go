package model

import "strings"

// CategoryFeature names an attribute that products of a category can carry.
type CategoryFeature struct {
	ID                uint    `gorm:"primarykey" json:"id"`
	CategoryID        uint    `gorm:"not null;uniqueIndex:idx_category_feature_filter" json:"category_id"`
	FeatureName       string  `gorm:"type:varchar(100);not null" json:"feature_name"`
	FeatureFilterName string  `gorm:"type:varchar(50);not null;uniqueIndex:idx_category_feature_filter" json:"feature_filter_name"`
	Unit              *string `gorm:"type:varchar(50)" json:"unit"`

	Validators []FeatureValidator `gorm:"foreignKey:FeatureKeyID;constraint:OnDelete:CASCADE" json:"validators,omitempty"`
}

func (CategoryFeature) TableName() string {
	return "category_features"
}

// FeatureValidator is one allowed value for a feature.
type FeatureValidator struct {
	ID                uint   `gorm:"primarykey" json:"id"`
	CategoryID        uint   `gorm:"not null;index" json:"category_id"`
	FeatureKeyID      uint   `gorm:"not null;index" json:"feature_key_id"`
	ValidFeatureValue string `gorm:"type:varchar(100);not null" json:"valid_feature_value"`
}

func (FeatureValidator) TableName() string {
	return "feature_validators"
}

type ProductFeature struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_product_feature" json:"product_id"`
	FeatureID uint   `gorm:"not null;uniqueIndex:idx_product_feature" json:"feature_id"`
	Value     string `gorm:"type:varchar(255);not null" json:"value"`

	Feature CategoryFeature `gorm:"foreignKey:FeatureID;constraint:OnDelete:CASCADE" json:"feature"`
}

func (ProductFeature) TableName() string {
	return "product_features"
}

// Display renders "value unit", or just the value when the feature has no unit.
func (f ProductFeature) Display() string {
	if f.Feature.Unit == nil || *f.Feature.Unit == "" {
		return f.Value
	}
	return strings.TrimSpace(f.Value + " " + *f.Feature.Unit)
}
