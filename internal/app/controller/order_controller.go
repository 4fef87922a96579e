package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder checks out the caller's cart
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	cc, ok := cartContext(c)
	if !ok {
		return
	}

	var form service.OrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.CreateOrder(c.Request.Context(), cc, form)
	if err != nil {
		respondError(c, err, "create order")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders returns the caller's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.ListCustomerOrders(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus moves an order forward (staff only)
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondError(c, err, "update order status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetReceipt renders the order as a PDF
// GET /api/v1/orders/:id/receipt
func (ctrl *OrderController) GetReceipt(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pdf, ref, err := ctrl.orderService.Receipt(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "render receipt")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, ref))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
