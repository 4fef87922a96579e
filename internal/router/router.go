package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// Controllers groups every HTTP handler set the API exposes.
type Controllers struct {
	Auth         *controller.AuthController
	Category     *controller.CategoryController
	Product      *controller.ProductController
	Feature      *controller.FeatureController
	Relation     *controller.RelationController
	Cart         *controller.CartController
	Order        *controller.OrderController
	Upload       *controller.UploadController
	Notification *controller.NotificationController
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(ctx context.Context) error

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	cartResolver   service.CartResolver
	rateLimiter    *middleware.RateLimiter
	healthChecks   map[string]HealthChecker
	config         *config.Config
}

func NewRouter(
	controllers Controllers,
	authMiddleware *middleware.AuthMiddleware,
	cartResolver service.CartResolver,
	rateLimiter *middleware.RateLimiter,
	healthChecks map[string]HealthChecker,
	cfg *config.Config,
) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		cartResolver:   cartResolver,
		rateLimiter:    rateLimiter,
		healthChecks:   healthChecks,
		config:         cfg,
	}
}

// corsConfig allows every origin when none is configured.
func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowOrigins:     r.config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Origin", middleware.RequestIDHeader, r.config.Cart.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader, r.config.Cart.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(r.corsConfig()))

	router.GET("/health", r.health)

	auth := r.authMiddleware
	ctl := r.controllers
	limit := r.rateLimiter.Limit()
	cart := middleware.CartMiddleware(r.cartResolver, r.config.Cart)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", limit, ctl.Auth.Register)
			authGroup.POST("/login", limit, ctl.Auth.Login)
			authGroup.POST("/refresh", limit, ctl.Auth.Refresh)
			authGroup.POST("/oidc", limit, ctl.Auth.OIDCLogin)
			authGroup.POST("/logout", auth.Authenticate(), ctl.Auth.Logout)
			authGroup.GET("/me", auth.Authenticate(), ctl.Auth.GetMe)
			authGroup.PUT("/me", auth.Authenticate(), ctl.Auth.UpdateMe)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", ctl.Category.ListCategories)
			categories.GET("/:id", ctl.Category.GetCategory)
			categories.POST("", auth.Authenticate(), ctl.Category.CreateCategory)
			categories.PUT("/:id", auth.Authenticate(), ctl.Category.UpdateCategory)
			categories.DELETE("/:id", auth.Authenticate(), ctl.Category.DeleteCategory)

			categories.GET("/:id/features", ctl.Feature.ListFeatures)
			categories.POST("/:id/features", auth.Authenticate(), auth.RequireStaff(), ctl.Feature.CreateFeature)
		}

		features := v1.Group("/features", auth.Authenticate(), auth.RequireStaff())
		{
			features.DELETE("/:id", ctl.Feature.DeleteFeature)
			features.POST("/:id/validators", ctl.Feature.CreateValidator)
		}
		v1.DELETE("/validators/:id", auth.Authenticate(), auth.RequireStaff(), ctl.Feature.DeleteValidator)

		v1.GET("/product-types", ctl.Product.ListProductTypes)

		products := v1.Group("/products")
		{
			products.GET("", ctl.Product.ListProducts)
			products.GET("/:id", ctl.Product.GetProduct)
			products.POST("", auth.Authenticate(), ctl.Product.CreateProduct)
			products.PUT("/:id", auth.Authenticate(), ctl.Product.UpdateProduct)
			products.DELETE("/:id", auth.Authenticate(), ctl.Product.DeleteProduct)
			products.PUT("/:id/features", auth.Authenticate(), ctl.Feature.SetProductFeature)
			products.GET("/:id/relation", auth.Authenticate(), ctl.Relation.GetRelation)
			products.PUT("/:id/relation", auth.Authenticate(), limit, ctl.Relation.UpdateRelation)
		}

		carts := v1.Group("/cart", auth.OptionalAuthenticate(), cart)
		{
			carts.GET("", ctl.Cart.GetCart)
			carts.DELETE("", limit, ctl.Cart.ClearCart)
			carts.POST("/items", limit, ctl.Cart.AddToCart)
			carts.PATCH("/items/:product_id", limit, ctl.Cart.ChangeQuantity)
			carts.DELETE("/items/:product_id", limit, ctl.Cart.RemoveFromCart)
		}

		orders := v1.Group("/orders")
		{
			// checkout runs on the caller's cart, so it resolves one like /cart does
			orders.POST("", auth.OptionalAuthenticate(), cart, limit, ctl.Order.CreateOrder)
			orders.GET("", auth.Authenticate(), ctl.Order.ListOrders)
			orders.GET("/:id", auth.Authenticate(), ctl.Order.GetOrder)
			orders.GET("/:id/receipt", auth.Authenticate(), ctl.Order.GetReceipt)
			orders.PUT("/:id/status", auth.Authenticate(), auth.RequireStaff(), ctl.Order.UpdateOrderStatus)
		}

		v1.POST("/upload/presigned-url", auth.Authenticate(), limit, ctl.Upload.GeneratePresignedURL)

		v1.GET("/ws", auth.Authenticate(), ctl.Notification.Connect)
	}

	return router
}

// health runs every registered check and answers 503 if any fails.
func (r *Router) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(r.healthChecks))
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			middleware.GetLoggerFromContext(c).Error("Health check failed", err, map[string]interface{}{
				"check": name,
			})
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
