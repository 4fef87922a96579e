package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// ChangeQuantityRequest keeps the raw quantity so that "3", 3 and 1.5 all
// reach the service, which owns the parsing rules.
type ChangeQuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

func (r ChangeQuantityRequest) raw() string {
	raw := strings.TrimSpace(string(r.Quantity))
	var s string
	if err := json.Unmarshal(r.Quantity, &s); err == nil {
		return s
	}
	if raw == "null" {
		return ""
	}
	return raw
}

type cartResponse struct {
	Cart *model.Cart `json:"cart"`
}

// GetCart returns the caller's open cart with its items
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), cc)
	if err != nil {
		respondError(c, err, "fetch cart")
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}

// AddToCart adds one unit of a product
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(c.Request.Context(), cc, req.ProductID)
	if err != nil {
		respondError(c, err, "add cart item")
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}

// ChangeQuantity sets a line's quantity
// PATCH /api/v1/cart/items/:product_id
func (ctrl *CartController) ChangeQuantity(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	var req ChangeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Request body is not valid JSON")
		return
	}

	cart, err := ctrl.cartService.ChangeQuantity(c.Request.Context(), cc, productID, req.raw())
	if err != nil {
		respondError(c, err, "change cart item quantity")
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}

// RemoveFromCart drops a line
// DELETE /api/v1/cart/items/:product_id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), cc, productID)
	if err != nil {
		respondError(c, err, "remove cart item")
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}

// ClearCart empties the open cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.ClearCart(c.Request.Context(), cc)
	if err != nil {
		respondError(c, err, "clear cart")
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: cart})
}
