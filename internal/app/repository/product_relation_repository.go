package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRelationRepository interface {
	WithTx(tx *gorm.DB) ProductRelationRepository
	Find(userID, productID uint) (*model.UserProductRelation, error)
	FindOrCreate(userID, productID uint) (*model.UserProductRelation, error)
	Save(relation *model.UserProductRelation) error
	ListByProduct(productID uint) ([]model.UserProductRelation, error)
}

type productRelationRepository struct {
	db *gorm.DB
}

func NewProductRelationRepository(db *gorm.DB) ProductRelationRepository {
	return &productRelationRepository{db: db}
}

func (r *productRelationRepository) WithTx(tx *gorm.DB) ProductRelationRepository {
	return &productRelationRepository{db: tx}
}

func (r *productRelationRepository) Find(userID, productID uint) (*model.UserProductRelation, error) {
	var relation model.UserProductRelation
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&relation).Error
	if err != nil {
		return nil, err
	}
	return &relation, nil
}

func (r *productRelationRepository) FindOrCreate(userID, productID uint) (*model.UserProductRelation, error) {
	relation := &model.UserProductRelation{UserID: userID, ProductID: productID}
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(relation).Error
	if err != nil {
		logger.Error("Failed to create product relation", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}
	return r.Find(userID, productID)
}

func (r *productRelationRepository) Save(relation *model.UserProductRelation) error {
	if err := r.db.Omit(clause.Associations).Save(relation).Error; err != nil {
		logger.Error("Failed to save product relation", err, map[string]interface{}{
			"relation_id": relation.ID,
		})
		return err
	}
	return nil
}

func (r *productRelationRepository) ListByProduct(productID uint) ([]model.UserProductRelation, error) {
	var relations []model.UserProductRelation
	if err := r.db.Where("product_id = ?", productID).Order("id ASC").Find(&relations).Error; err != nil {
		return nil, err
	}
	return relations, nil
}
