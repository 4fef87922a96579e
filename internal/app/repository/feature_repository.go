package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeatureRepository interface {
	WithTx(tx *gorm.DB) FeatureRepository

	CreateFeature(feature *model.CategoryFeature) error
	FindFeatureByID(id uint) (*model.CategoryFeature, error)
	ListByCategory(categoryID uint) ([]model.CategoryFeature, error)
	DeleteFeature(id uint) error

	CreateValidator(validator *model.FeatureValidator) error
	DeleteValidator(id uint) error

	UpsertProductFeature(pf *model.ProductFeature) error
	ListProductFeatures(productID uint) ([]model.ProductFeature, error)
}

type featureRepository struct {
	db *gorm.DB
}

func NewFeatureRepository(db *gorm.DB) FeatureRepository {
	return &featureRepository{db: db}
}

func (r *featureRepository) WithTx(tx *gorm.DB) FeatureRepository {
	return &featureRepository{db: tx}
}

func (r *featureRepository) CreateFeature(feature *model.CategoryFeature) error {
	if err := r.db.Omit(clause.Associations).Create(feature).Error; err != nil {
		logger.Error("Failed to create category feature", err, map[string]interface{}{
			"category_id":         feature.CategoryID,
			"feature_filter_name": feature.FeatureFilterName,
		})
		return err
	}
	return nil
}

func (r *featureRepository) FindFeatureByID(id uint) (*model.CategoryFeature, error) {
	var feature model.CategoryFeature
	if err := r.db.Preload("Validators").First(&feature, id).Error; err != nil {
		return nil, err
	}
	return &feature, nil
}

func (r *featureRepository) ListByCategory(categoryID uint) ([]model.CategoryFeature, error) {
	var features []model.CategoryFeature
	err := r.db.Preload("Validators").
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Find(&features).Error
	return features, err
}

func (r *featureRepository) DeleteFeature(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feature_key_id = ?", id).Delete(&model.FeatureValidator{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feature_id = ?", id).Delete(&model.ProductFeature{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.CategoryFeature{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *featureRepository) CreateValidator(validator *model.FeatureValidator) error {
	if err := r.db.Create(validator).Error; err != nil {
		logger.Error("Failed to create feature validator", err, map[string]interface{}{
			"feature_key_id": validator.FeatureKeyID,
		})
		return err
	}
	return nil
}

func (r *featureRepository) DeleteValidator(id uint) error {
	result := r.db.Delete(&model.FeatureValidator{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertProductFeature sets the value of one feature on one product.
func (r *featureRepository) UpsertProductFeature(pf *model.ProductFeature) error {
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "feature_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(pf).Error
	if err != nil {
		logger.Error("Failed to upsert product feature", err, map[string]interface{}{
			"product_id": pf.ProductID,
			"feature_id": pf.FeatureID,
		})
		return err
	}
	return nil
}

func (r *featureRepository) ListProductFeatures(productID uint) ([]model.ProductFeature, error) {
	var features []model.ProductFeature
	err := r.db.Preload("Feature").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&features).Error
	return features, err
}
