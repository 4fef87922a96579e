package service

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	users       repository.UserRepository
	customers   repository.CustomerRepository
	carts       repository.CartRepository
	products    repository.ProductRepository
	categories  repository.CategoryRepository
	relations   repository.ProductRelationRepository
	orders      repository.OrderRepository
	featureRepo repository.FeatureRepository
	resolver    CartResolver
	cartService CartService
	ratingSvc   RatingService
	catalogSvc  CatalogService
	featureSvc  FeatureService
}

func setupTestEnv(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	env := &testEnv{
		db:          testDB,
		users:       repository.NewUserRepository(testDB),
		customers:   repository.NewCustomerRepository(testDB),
		carts:       repository.NewCartRepository(testDB),
		products:    repository.NewProductRepository(testDB),
		categories:  repository.NewCategoryRepository(testDB),
		relations:   repository.NewProductRelationRepository(testDB),
		orders:      repository.NewOrderRepository(testDB),
		featureRepo: repository.NewFeatureRepository(testDB),
	}
	env.resolver = NewCartResolver(testDB, env.customers, env.carts)
	env.cartService = NewCartService(testDB, env.carts, env.products)
	env.ratingSvc = NewRatingService(testDB, env.products, env.relations)
	env.catalogSvc = NewCatalogService(testDB, env.categories, env.products, env.carts)
	env.featureSvc = NewFeatureService(testDB, env.featureRepo, env.categories, env.products)
	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role model.UserRole) *model.User {
	user := &model.User{Email: email, PasswordHash: "hash", Name: "Test User", Role: role}
	require.NoError(t, e.users.Create(user))
	return user
}

func (e *testEnv) createCategory(t *testing.T, name string) *model.Category {
	category := &model.Category{Name: name}
	require.NoError(t, e.categories.Create(category))
	return category
}

func (e *testEnv) createProduct(t *testing.T, categoryID uint, title, price string) *model.Product {
	product := &model.Product{Title: title, CategoryID: categoryID, Price: decimal.RequireFromString(price)}
	require.NoError(t, e.products.Create(product))
	return product
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, field)
}
