package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/util"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors lists every sentinel a handler can surface to the client.
var serviceErrors = []errorMapping{
	{service.ErrPermissionDenied, http.StatusForbidden, apperrors.AuthzForbidden, "You do not have permission to perform this action"},
	{service.ErrCategoryNotFound, http.StatusNotFound, apperrors.CategoryNotFound, "Category not found"},
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound, "Product not found"},
	{service.ErrFeatureNotFound, http.StatusNotFound, apperrors.FeatureNotFound, "Feature not found"},
	{service.ErrCartNotFound, http.StatusNotFound, apperrors.CartNotFound, "Cart not found"},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound, "Product is not in the cart"},
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound, "Order not found"},
	{service.ErrCartClosed, http.StatusConflict, apperrors.CartClosed, "The cart has already been ordered"},
	{service.ErrEmptyCart, http.StatusBadRequest, apperrors.CartEmpty, "The cart is empty"},
	{service.ErrCustomerRequired, http.StatusUnauthorized, apperrors.CartCustomerRequired, "Sign in to place an order"},
	{service.ErrInvalidStatusTransition, http.StatusConflict, apperrors.OrderInvalidTransition, "Order status can only move forward"},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists, "This email is already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password"},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound, "User not found"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Token has been revoked"},
	{service.ErrOIDCDisabled, http.StatusNotFound, apperrors.AuthOIDCDisabled, "OIDC login is not configured"},
	{util.ErrExpiredToken, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired"},
	{util.ErrInvalidToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid token"},
}

// respondError writes err as a structured error response. action names the
// failed operation for logs and the fallback message, e.g. "add cart item".
func respondError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		log.Warn("Validation failed", map[string]interface{}{
			"action": action,
			"fields": verr.Fields,
		})
		apperrors.RespondWithValidationError(c, verr.Fields)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			log.Warn("Request rejected", map[string]interface{}{
				"action": action,
				"code":   m.code,
			})
			apperrors.RespondWithError(c, m.status, m.code, m.message)
			return
		}
	}

	log.Error("Failed to "+action, err, nil)
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
}

// respondBindError turns a binding failure into per-field messages.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonFieldName(fe)] = bindingMessage(fe)
		}
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Request body is not valid JSON")
}

// jsonFieldName converts the Go field name to snake_case, which every
// request struct in this package uses for its json tags.
func jsonFieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return strings.ReplaceAll(b.String(), "_i_d", "_id")
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "Invalid value"
	}
}

// parseIDParam reads a positive numeric path parameter, answering 400 otherwise.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// currentActor returns the authenticated caller. Routes using it sit behind
// Authenticate, so a miss is answered with 401.
func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return service.Actor{UserID: userID, Role: role}, true
}

func cartContext(c *gin.Context) (service.CartContext, bool) {
	cc, ok := middleware.GetCartContext(c)
	if !ok {
		apperrors.InternalError(c, "Cart was not resolved for this request")
		return service.CartContext{}, false
	}
	return cc, true
}
