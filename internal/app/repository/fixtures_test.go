package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestUser(t *testing.T, testDB *gorm.DB, email string) *model.User {
	user := &model.User{Email: email, Name: "Test User", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createTestCategory(t *testing.T, testDB *gorm.DB, name string) *model.Category {
	category := &model.Category{Name: name}
	require.NoError(t, testDB.Create(category).Error)
	return category
}

func createTestProduct(t *testing.T, testDB *gorm.DB, categoryID uint, title, price string) *model.Product {
	product := &model.Product{
		Title:      title,
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
	}
	require.NoError(t, testDB.Omit("Category").Create(product).Error)
	return product
}
