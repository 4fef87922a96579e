package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

const cartContextKey = "cart_context"

// CartMiddleware resolves the caller's open cart once per request. Signed-in
// users get their account cart; everyone else gets the cart bound to the
// session token, which is echoed back in the header and an HttpOnly cookie.
// Must run after Authenticate or OptionalAuthenticate.
func CartMiddleware(resolver service.CartResolver, cfg config.CartConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)
		ctx := c.Request.Context()

		var (
			cc  service.CartContext
			err error
		)
		if userID, ok := GetUserID(c); ok {
			cc, err = resolver.ResolveForUser(ctx, userID)
		} else {
			token := c.GetHeader(cfg.SessionHeader)
			if token == "" {
				token, _ = c.Cookie(cfg.SessionCookie)
			}
			cc, err = resolver.ResolveForSession(ctx, token)
		}
		if err != nil {
			log.Error("Failed to resolve cart", err, nil)
			apperrors.InternalError(c, "Failed to load cart")
			c.Abort()
			return
		}

		if cc.SessionToken != "" {
			c.Header(cfg.SessionHeader, cc.SessionToken)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.SessionCookie, cc.SessionToken, int(cfg.CookieMaxAge.Seconds()), "/", "", c.Request.TLS != nil, true)
		}

		c.Set(cartContextKey, cc)
		log.Debug("Cart resolved", map[string]interface{}{
			"cart_id":   cc.CartID,
			"anonymous": cc.IsAnonymous(),
		})
		c.Next()
	}
}

// GetCartContext returns the cart resolved by CartMiddleware.
func GetCartContext(c *gin.Context) (service.CartContext, bool) {
	value, exists := c.Get(cartContextKey)
	if !exists {
		return service.CartContext{}, false
	}
	cc, ok := value.(service.CartContext)
	return cc, ok
}
