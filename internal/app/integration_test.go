package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/receipt"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
	Hub    *ws.Hub
	Config *config.Config
}

func testConfig(burst int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		JWT: config.JWTConfig{
			Secret:             testSecret,
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
		},
		Cart: config.CartConfig{
			SessionHeader: "X-Cart-Session",
			SessionCookie: "cart_session",
			CookieMaxAge:  time.Hour,
			AnonymousTTL:  time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             burst,
		},
	}
}

// setupIntegrationTest builds the production router on an in-memory database.
func setupIntegrationTest(t *testing.T, cfg *config.Config) *TestServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	customerRepo := repository.NewCustomerRepository(testDB)
	categoryRepo := repository.NewCategoryRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	relationRepo := repository.NewProductRelationRepository(testDB)
	featureRepo := repository.NewFeatureRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	hub := ws.NewHub()

	authService := service.NewAuthService(userRepo, nil, nil, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	catalogService := service.NewCatalogService(testDB, categoryRepo, productRepo, cartRepo)
	orderService := service.NewOrderService(testDB, orderRepo, cartRepo, customerRepo, hub, receipt.NewSigner(cfg.JWT.Secret))

	r := router.NewRouter(
		router.Controllers{
			Auth:         controller.NewAuthController(authService),
			Category:     controller.NewCategoryController(catalogService),
			Product:      controller.NewProductController(catalogService),
			Feature:      controller.NewFeatureController(service.NewFeatureService(testDB, featureRepo, categoryRepo, productRepo)),
			Relation:     controller.NewRelationController(service.NewRatingService(testDB, productRepo, relationRepo)),
			Cart:         controller.NewCartController(service.NewCartService(testDB, cartRepo, productRepo)),
			Order:        controller.NewOrderController(orderService),
			Notification: controller.NewNotificationController(hub, nil),
		},
		middleware.NewAuthMiddleware(cfg.JWT.Secret, nil),
		service.NewCartResolver(testDB, customerRepo, cartRepo),
		middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		nil,
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
		Hub:    hub,
		Config: cfg,
	}
}

func (ts *TestServer) request(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (ts *TestServer) staffToken(t *testing.T) string {
	staff := &model.User{Email: "staff@example.com", PasswordHash: "hash", Name: "Staff", Role: model.RoleStaff}
	require.NoError(t, ts.DB.Create(staff).Error)
	tokens, err := util.GenerateTokenPair(staff.ID, staff.Email, string(staff.Role), testSecret, time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func orderForm() map[string]interface{} {
	return map[string]interface{}{
		"first_name":  "Grace",
		"last_name":   "Hopper",
		"phone":       "+1 202 555 0100",
		"address":     "1 Navy Yard",
		"buying_type": "self",
		"order_date":  time.Now().AddDate(0, 0, 2).Format("2006-01-02"),
	}
}

func assertMoney(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "expected a decimal string, got %T", got)
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}

func TestCompleteShopperJourney(t *testing.T) {
	ts := setupIntegrationTest(t, testConfig(100))
	staff := ts.staffToken(t)

	// 1. Staff sets up the catalog
	w, category := ts.request(t, http.MethodPost, "/categories", map[string]interface{}{"name": "Laptops"}, bearer(staff))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, laptop := ts.request(t, http.MethodPost, "/products", map[string]interface{}{
		"title":        "Thinkpad X1",
		"category_id":  category["id"],
		"product_type": "notebook",
		"price":        "1299.90",
	}, bearer(staff))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, mouse := ts.request(t, http.MethodPost, "/products", map[string]interface{}{
		"title":       "Mouse",
		"category_id": category["id"],
		"price":       "20.05",
	}, bearer(staff))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, page := ts.request(t, http.MethodGet, "/products?category_slug=laptops", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), page["count"])

	// 2. An anonymous visitor fills a cart but cannot check out
	w, _ = ts.request(t, http.MethodPost, "/cart/items", map[string]interface{}{"product_id": laptop["id"]}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := w.Header().Get(ts.Config.Cart.SessionHeader)
	require.NotEmpty(t, session)

	w, resp := ts.request(t, http.MethodPost, "/orders", orderForm(), map[string]string{ts.Config.Cart.SessionHeader: session})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "CART_CUSTOMER_REQUIRED", resp["error"])

	// 3. The visitor registers and starts over with an account cart
	w, resp = ts.request(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Buyer",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := resp["tokens"].(map[string]interface{})["access_token"].(string)

	w, resp = ts.request(t, http.MethodGet, "/cart", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["cart"].(map[string]interface{})["total_item_count"])

	for _, product := range []map[string]interface{}{laptop, mouse} {
		w, _ = ts.request(t, http.MethodPost, "/cart/items", map[string]interface{}{"product_id": product["id"]}, bearer(token))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w, resp = ts.request(t, http.MethodPatch, fmt.Sprintf("/cart/items/%v", mouse["id"]), map[string]interface{}{"quantity": "3"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := resp["cart"].(map[string]interface{})
	assert.Equal(t, float64(2), cart["total_item_count"])
	assertMoney(t, "1360.05", cart["total_price"])

	// 4. Rate the laptop
	w, _ = ts.request(t, http.MethodPut, fmt.Sprintf("/products/%v/relation", laptop["id"]), map[string]interface{}{"rate": 5, "like": true}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, resp = ts.request(t, http.MethodGet, fmt.Sprintf("/products/%v", laptop["slug"]), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assertMoney(t, "5", resp["rating"])
	assert.Equal(t, float64(1), resp["likes"])

	// 5. Checkout
	w, resp = ts.request(t, http.MethodPost, "/orders", orderForm(), bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := resp["order"].(map[string]interface{})
	assert.Equal(t, "new", order["status"])
	assertMoney(t, "1360.05", order["total_price"])
	orderPath := fmt.Sprintf("/orders/%v", order["id"])

	w, resp = ts.request(t, http.MethodGet, "/cart", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["cart"].(map[string]interface{})["total_item_count"])

	// 6. Staff moves the order along; the buyer sees it
	w, _ = ts.request(t, http.MethodPut, orderPath+"/status", map[string]interface{}{"status": "in_progress"}, bearer(token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = ts.request(t, http.MethodPut, orderPath+"/status", map[string]interface{}{"status": "in_progress"}, bearer(staff))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = ts.request(t, http.MethodGet, orderPath, nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_progress", resp["order"].(map[string]interface{})["status"])

	w, _ = ts.request(t, http.MethodGet, orderPath+"/receipt", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestRateLimitedLogin(t *testing.T) {
	ts := setupIntegrationTest(t, testConfig(2))
	creds := map[string]interface{}{"email": "nobody@example.com", "password": "password123"}

	for i := 0; i < 2; i++ {
		w, _ := ts.request(t, http.MethodPost, "/auth/login", creds, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w, resp := ts.request(t, http.MethodPost, "/auth/login", creds, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.NotEmpty(t, resp["error"])
}

func TestUnauthorizedAccess(t *testing.T) {
	ts := setupIntegrationTest(t, testConfig(100))

	protectedRoutes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/categories"},
		{http.MethodPut, "/orders/1/status"},
		{http.MethodGet, "/ws"},
	}

	for _, route := range protectedRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w, _ := ts.request(t, route.method, route.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
