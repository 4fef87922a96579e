package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/receipt"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

var testCartConfig = config.CartConfig{
	SessionHeader: "X-Cart-Session",
	SessionCookie: "cart_session",
	CookieMaxAge:  time.Hour,
	AnonymousTTL:  time.Hour,
}

type testServer struct {
	router     *gin.Engine
	db         *gorm.DB
	users      repository.UserRepository
	categories repository.CategoryRepository
	products   repository.ProductRepository
	presigner  *stubPresigner
}

// newTestServer wires every controller behind the same middleware chain the
// API uses, minus rate limiting.
func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	users := repository.NewUserRepository(testDB)
	customers := repository.NewCustomerRepository(testDB)
	carts := repository.NewCartRepository(testDB)
	products := repository.NewProductRepository(testDB)
	categories := repository.NewCategoryRepository(testDB)
	relations := repository.NewProductRelationRepository(testDB)
	orders := repository.NewOrderRepository(testDB)
	features := repository.NewFeatureRepository(testDB)

	resolver := service.NewCartResolver(testDB, customers, carts)
	authCtrl := NewAuthController(service.NewAuthService(users, nil, nil, testSecret, 15*time.Minute, time.Hour))
	catalogSvc := service.NewCatalogService(testDB, categories, products, carts)
	categoryCtrl := NewCategoryController(catalogSvc)
	productCtrl := NewProductController(catalogSvc)
	featureCtrl := NewFeatureController(service.NewFeatureService(testDB, features, categories, products))
	relationCtrl := NewRelationController(service.NewRatingService(testDB, products, relations))
	cartCtrl := NewCartController(service.NewCartService(testDB, carts, products))
	orderCtrl := NewOrderController(service.NewOrderService(testDB, orders, carts, customers, nil, receipt.NewSigner(testSecret)))
	presigner := &stubPresigner{}
	uploadCtrl := NewUploadController(presigner)

	auth := middleware.NewAuthMiddleware(testSecret, nil)
	cartMW := middleware.CartMiddleware(resolver, testCartConfig)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())

	r.POST("/auth/register", authCtrl.Register)
	r.POST("/auth/login", authCtrl.Login)
	r.POST("/auth/refresh", authCtrl.Refresh)
	r.POST("/auth/logout", auth.Authenticate(), authCtrl.Logout)
	r.POST("/auth/oidc", authCtrl.OIDCLogin)
	r.GET("/auth/me", auth.Authenticate(), authCtrl.GetMe)
	r.PUT("/auth/me", auth.Authenticate(), authCtrl.UpdateMe)

	r.GET("/categories", categoryCtrl.ListCategories)
	r.GET("/categories/:id", categoryCtrl.GetCategory)
	r.POST("/categories", auth.Authenticate(), categoryCtrl.CreateCategory)
	r.PUT("/categories/:id", auth.Authenticate(), categoryCtrl.UpdateCategory)
	r.DELETE("/categories/:id", auth.Authenticate(), categoryCtrl.DeleteCategory)
	r.GET("/categories/:id/features", featureCtrl.ListFeatures)
	r.POST("/categories/:id/features", auth.Authenticate(), featureCtrl.CreateFeature)
	r.DELETE("/features/:id", auth.Authenticate(), featureCtrl.DeleteFeature)
	r.POST("/features/:id/validators", auth.Authenticate(), featureCtrl.CreateValidator)
	r.DELETE("/validators/:id", auth.Authenticate(), featureCtrl.DeleteValidator)

	r.GET("/product-types", productCtrl.ListProductTypes)
	r.GET("/products", productCtrl.ListProducts)
	r.GET("/products/:id", productCtrl.GetProduct)
	r.POST("/products", auth.Authenticate(), productCtrl.CreateProduct)
	r.PUT("/products/:id", auth.Authenticate(), productCtrl.UpdateProduct)
	r.DELETE("/products/:id", auth.Authenticate(), productCtrl.DeleteProduct)
	r.PUT("/products/:id/features", auth.Authenticate(), featureCtrl.SetProductFeature)
	r.GET("/products/:id/relation", auth.Authenticate(), relationCtrl.GetRelation)
	r.PUT("/products/:id/relation", auth.Authenticate(), relationCtrl.UpdateRelation)

	cart := r.Group("/cart", auth.OptionalAuthenticate(), cartMW)
	cart.GET("", cartCtrl.GetCart)
	cart.DELETE("", cartCtrl.ClearCart)
	cart.POST("/items", cartCtrl.AddToCart)
	cart.PATCH("/items/:product_id", cartCtrl.ChangeQuantity)
	cart.DELETE("/items/:product_id", cartCtrl.RemoveFromCart)

	r.POST("/orders", auth.OptionalAuthenticate(), cartMW, orderCtrl.CreateOrder)
	r.GET("/orders", auth.Authenticate(), orderCtrl.ListOrders)
	r.GET("/orders/:id", auth.Authenticate(), orderCtrl.GetOrder)
	r.GET("/orders/:id/receipt", auth.Authenticate(), orderCtrl.GetReceipt)
	r.PUT("/orders/:id/status", auth.Authenticate(), orderCtrl.UpdateOrderStatus)

	r.POST("/upload/presigned-url", auth.Authenticate(), uploadCtrl.GeneratePresignedURL)

	return &testServer{
		router:     r,
		db:         testDB,
		users:      users,
		categories: categories,
		products:   products,
		presigner:  presigner,
	}
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCartSession(token string) requestOption {
	return func(req *http.Request) {
		req.Header.Set(testCartConfig.SessionHeader, token)
	}
}

// do sends body as JSON unless it is already a string.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createUser(t *testing.T, email string, role model.UserRole) (*model.User, string) {
	user := &model.User{Email: email, PasswordHash: "hash", Name: "Test User", Role: role}
	require.NoError(t, s.users.Create(user))
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return user, tokens.AccessToken
}

func (s *testServer) createCategory(t *testing.T, name string) *model.Category {
	category := &model.Category{Name: name}
	require.NoError(t, s.categories.Create(category))
	return category
}

func (s *testServer) createProduct(t *testing.T, categoryID uint, title, price string, ownerID *uint) *model.Product {
	product := &model.Product{
		Title:      title,
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
		OwnerID:    ownerID,
	}
	require.NoError(t, s.products.Create(product))
	return product
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// assertMoney compares a JSON decimal (rendered as a string) numerically.
func assertMoney(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "expected a decimal string, got %T", got)
	require.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}
