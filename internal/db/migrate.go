package db

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Customer{},
		&model.Category{},
		&model.CategoryFeature{},
		&model.FeatureValidator{},
		&model.Product{},
		&model.ProductFeature{},
		&model.UserProductRelation{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds the base category set on an empty database
func Seed() error {
	return SeedCategories(DB)
}

var defaultCategories = []model.Category{
	{Name: "Notebooks", Slug: "notebooks"},
	{Name: "Smartphones", Slug: "smartphones"},
	{Name: "Books", Slug: "books"},
}

// SeedCategories inserts defaultCategories unless any category exists.
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding category data...")

	categories := make([]model.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	if err := db.Create(&categories).Error; err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	logger.Info("Categories seeded successfully", map[string]interface{}{
		"total_categories": len(categories),
	})
	return nil
}
