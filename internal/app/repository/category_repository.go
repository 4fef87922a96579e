package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var categoryOrdering = map[string]string{
	"id":   "categories.id",
	"name": "categories.name",
	"slug": "categories.slug",
}

type CategoryFilter struct {
	Name     string
	Slug     string
	Search   string
	Ordering string
	Page     Page
}

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	Create(category *model.Category) error
	FindByID(id uint) (*model.Category, error)
	FindBySlug(slug string) (*model.Category, error)
	FindWithFilter(filter CategoryFilter) ([]model.Category, int64, error)
	Update(category *model.Category) error
	Delete(id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepository{db: tx}
}

func (r *categoryRepository) Create(category *model.Category) error {
	logger.Debug("Creating category in database", map[string]interface{}{
		"name": category.Name,
		"slug": category.Slug,
	})

	if err := r.db.Omit(clause.Associations).Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"name": category.Name,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindWithFilter(filter CategoryFilter) ([]model.Category, int64, error) {
	page := filter.Page.Normalize()
	query := r.db.Model(&model.Category{})

	if filter.Name != "" {
		query = query.Where("categories.name = ?", filter.Name)
	}
	if filter.Slug != "" {
		query = query.Where("categories.slug = ?", filter.Slug)
	}
	query = whereContainsAny(query, filter.Search, "categories.name", "categories.slug").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count categories", err, nil)
		return nil, 0, err
	}

	var categories []model.Category
	err := orderBy(query, filter.Ordering, categoryOrdering, "categories.name ASC", "categories.id").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&categories).Error
	if err != nil {
		logger.Error("Failed to list categories", err, nil)
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *categoryRepository) Update(category *model.Category) error {
	err := r.db.Model(category).
		Omit(clause.Associations, "owner_id", "created_at").
		Updates(map[string]interface{}{
			"name": category.Name,
			"slug": category.Slug,
		}).Error
	if err != nil {
		logger.Error("Failed to update category in database", err, map[string]interface{}{
			"category_id": category.ID,
		})
		return err
	}
	return nil
}

// Delete removes the category together with its products and feature metadata.
func (r *categoryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		products := tx.Model(&model.Product{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("product_id IN (?)", products).Delete(&model.ProductFeature{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id IN (?)", products).Delete(&model.UserProductRelation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&model.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&model.FeatureValidator{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&model.CategoryFeature{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.Category{}, id)
		if result.Error != nil {
			logger.Error("Failed to delete category from database", result.Error, map[string]interface{}{
				"category_id": id,
			})
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
