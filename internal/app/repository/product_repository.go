package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var productOrdering = map[string]string{
	"title":      "products.title",
	"slug":       "products.slug",
	"price":      "products.price",
	"rating":     "products.rating",
	"likes":      "products.like_count",
	"created_at": "products.created_at",
}

type ProductFilter struct {
	CategoryID   *uint
	CategorySlug string
	ProductType  *model.ProductType
	Title        string
	Slug         string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	OwnerID      *uint
	Search       string
	Ordering     string
	Page         Page
}

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	Create(product *model.Product) error
	FindByID(id uint) (*model.Product, error)
	FindBySlug(slug string) (*model.Product, error)
	FindWithFilter(filter ProductFilter) ([]model.Product, int64, error)
	Update(product *model.Product) error
	UpdateAggregates(id uint, rating decimal.NullDecimal, likeCount int) error
	Delete(id uint) error
	ListIDs() ([]uint, error)
	ListIDsByCategory(categoryID uint) ([]uint, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"title":        product.Title,
		"category_id":  product.CategoryID,
		"product_type": product.ProductType,
	})

	if err := r.db.Omit(clause.Associations).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"title":       product.Title,
			"category_id": product.CategoryID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return nil
}

func (r *productRepository) detailQuery() *gorm.DB {
	return r.db.Preload("Category").Preload("Features.Feature")
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.detailQuery().First(&product, id).Error; err != nil {
		logger.Debug("Product not found", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySlug(slug string) (*model.Product, error) {
	var product model.Product
	if err := r.detailQuery().Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindWithFilter returns one page of products plus the total match count.
func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, int64, error) {
	page := filter.Page.Normalize()
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category_id":   filter.CategoryID,
		"category_slug": filter.CategorySlug,
		"search":        filter.Search,
		"ordering":      filter.Ordering,
		"page":          page.Number,
		"page_size":     page.Size,
	})

	query := r.db.Model(&model.Product{})

	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		query = query.Where("products.category_id IN (?)",
			r.db.Model(&model.Category{}).Select("id").Where("slug = ?", filter.CategorySlug))
	}
	if filter.ProductType != nil {
		query = query.Where("products.product_type = ?", *filter.ProductType)
	}
	if filter.Title != "" {
		query = query.Where("products.title = ?", filter.Title)
	}
	if filter.Slug != "" {
		query = query.Where("products.slug = ?", filter.Slug)
	}
	if filter.PriceMin != nil {
		query = query.Where("products.price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("products.price <= ?", *filter.PriceMax)
	}
	if filter.OwnerID != nil {
		query = query.Where("products.owner_id = ?", *filter.OwnerID)
	}
	query = whereContainsAny(query, filter.Search, "products.title", "products.slug").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err, nil)
		return nil, 0, err
	}

	query = orderBy(query, filter.Ordering, productOrdering, "products.created_at DESC", "products.id")

	var products []model.Product
	err := query.
		Preload("Category").
		Preload("Features.Feature").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&products).Error
	if err != nil {
		logger.Error("Failed to find products with filter", err, nil)
		return nil, 0, err
	}

	logger.Debug("Products found", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	err := r.db.Model(product).
		Omit(clause.Associations, "rating", "like_count", "owner_id", "created_at").
		Select("*").
		Updates(product).Error
	if err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

// UpdateAggregates writes the derived rating and like count only.
func (r *productRepository) UpdateAggregates(id uint, rating decimal.NullDecimal, likeCount int) error {
	result := r.db.Model(&model.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating":     rating,
		"like_count": likeCount,
	})
	if result.Error != nil {
		logger.Error("Failed to update product aggregates", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.Select(clause.Associations).Delete(&model.Product{ID: id})
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Product{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *productRepository) ListIDsByCategory(categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Product{}).Where("category_id = ?", categoryID).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
