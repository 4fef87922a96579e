package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCategoryRepository_CreateGeneratesSlug(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB)

	first := &model.Category{Name: "Home & Garden"}
	require.NoError(t, repo.Create(first))
	assert.Equal(t, "home-garden", first.Slug)

	second := &model.Category{Name: "Home & Garden"}
	require.NoError(t, repo.Create(second))
	assert.Equal(t, "home-garden-2", second.Slug)

	explicit := &model.Category{Name: "Other", Slug: "home-garden"}
	assert.Error(t, repo.Create(explicit))
}

func TestCategoryRepository_FindWithFilter(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB)
	for _, name := range []string{"Books", "Notebooks", "Smartphones"} {
		createTestCategory(t, testDB, name)
	}

	tests := []struct {
		name      string
		filter    CategoryFilter
		wantTotal int64
		want      []string
	}{
		{"Default ordering by name", CategoryFilter{}, 3, []string{"Books", "Notebooks", "Smartphones"}},
		{"Descending name", CategoryFilter{Ordering: "-name"}, 3, []string{"Smartphones", "Notebooks", "Books"}},
		{"Exact name", CategoryFilter{Name: "Books"}, 1, []string{"Books"}},
		{"Exact slug", CategoryFilter{Slug: "notebooks"}, 1, []string{"Notebooks"}},
		{"Search substring", CategoryFilter{Search: "BOOK"}, 2, []string{"Books", "Notebooks"}},
		{"Page size", CategoryFilter{Page: Page{Number: 1, Size: 2}}, 3, []string{"Books", "Notebooks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories, total, err := repo.FindWithFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			names := make([]string, len(categories))
			for i, c := range categories {
				names[i] = c.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCategoryRepository_UpdateAndDelete(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewCategoryRepository(testDB)
	category := createTestCategory(t, testDB, "Books")
	product := createTestProduct(t, testDB, category.ID, "Widget", "199.99")

	category.Name = "Paper Books"
	category.Slug = "paper-books"
	require.NoError(t, repo.Update(category))

	found, err := repo.FindBySlug("paper-books")
	require.NoError(t, err)
	assert.Equal(t, "Paper Books", found.Name)

	require.NoError(t, repo.Delete(category.ID))
	_, err = repo.FindByID(category.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var remaining int64
	require.NoError(t, testDB.Model(&model.Product{}).Where("id = ?", product.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	assert.ErrorIs(t, repo.Delete(category.ID), gorm.ErrRecordNotFound)
}
