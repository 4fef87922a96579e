package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

type notification struct {
	userID uint
	status model.OrderStatus
}

func (n *recordingNotifier) NotifyOrderStatus(userID uint, order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{userID: userID, status: order.Status})
}

var orderTestNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupOrderServiceTest(t *testing.T) (*testEnv, OrderService, *recordingNotifier) {
	env := setupTestEnv(t)
	notifier := &recordingNotifier{}
	svc := NewOrderService(env.db, env.orders, env.carts, env.customers, notifier, receipt.NewSigner("test-secret"))
	svc.(*orderService).now = func() time.Time { return orderTestNow }
	return env, svc, notifier
}

func validOrderForm() OrderForm {
	return OrderForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "+44 20 7946 0000",
		Address:   "12 St James's Square",
		OrderDate: "2026-03-10",
	}
}

// placeOrder fills the user's cart with one product and checks out.
func placeOrder(t *testing.T, env *testEnv, svc OrderService, user *model.User) *model.Order {
	ctx := context.Background()
	category := env.createCategory(t, "Cat "+user.Email)
	product := env.createProduct(t, category.ID, "Item "+user.Email, "12.50")
	cc, err := env.resolver.ResolveForUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(ctx, cc, product.ID)
	require.NoError(t, err)
	order, err := svc.CreateOrder(ctx, cc, validOrderForm())
	require.NoError(t, err)
	return order
}

func TestOrderService_CheckoutJourney(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()

	books := env.createCategory(t, "Books")
	widget := env.createProduct(t, books.ID, "Widget", "199.99")
	user := env.createUser(t, "buyer@example.com", model.RoleUser)

	cc, err := env.resolver.ResolveForUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(ctx, cc, widget.ID)
	require.NoError(t, err)
	cart, err := env.cartService.AddItem(ctx, cc, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, "399.98", cart.TotalPrice.StringFixed(2))

	form := validOrderForm()
	form.BuyingType = "delivery"
	order, err := svc.CreateOrder(ctx, cc, form)
	require.NoError(t, err)
	assert.Equal(t, "399.98", order.TotalPrice.StringFixed(2))
	assert.Equal(t, model.OrderStatusNew, order.Status)
	assert.Equal(t, model.BuyingTypeDelivery, order.BuyingType)
	assert.Equal(t, cc.CartID, order.CartID)
	require.NotNil(t, order.Cart)
	require.Len(t, order.Cart.Items, 1)
	assert.Equal(t, 2, order.Cart.Items[0].Quantity)

	closed, err := env.carts.FindByID(cc.CartID)
	require.NoError(t, err)
	assert.True(t, closed.InOrder)

	orders, err := svc.ListCustomerOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	t.Run("Ordered cart cannot be checked out again", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, cc, validOrderForm())
		assert.ErrorIs(t, err, ErrCartClosed)
	})

	t.Run("Next resolve opens an empty cart", func(t *testing.T) {
		next, err := env.resolver.ResolveForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, cc.CartID, next.CartID)

		_, err = svc.CreateOrder(ctx, next, validOrderForm())
		assert.ErrorIs(t, err, ErrEmptyCart)
	})
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()
	user := env.createUser(t, "buyer@example.com", model.RoleUser)
	cc, err := env.resolver.ResolveForUser(ctx, user.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(f *OrderForm)
		field  string
	}{
		{"Missing first name", func(f *OrderForm) { f.FirstName = "  " }, "first_name"},
		{"Missing last name", func(f *OrderForm) { f.LastName = "" }, "last_name"},
		{"Missing phone", func(f *OrderForm) { f.Phone = "" }, "phone"},
		{"Missing address", func(f *OrderForm) { f.Address = "" }, "address"},
		{"Unknown buying type", func(f *OrderForm) { f.BuyingType = "drone" }, "buying_type"},
		{"Missing date", func(f *OrderForm) { f.OrderDate = "" }, "order_date"},
		{"Bad date format", func(f *OrderForm) { f.OrderDate = "10/03/2026" }, "order_date"},
		{"Date in the past", func(f *OrderForm) { f.OrderDate = "2026-03-09" }, "order_date"},
		{"Comment too long", func(f *OrderForm) { f.Comment = strings.Repeat("x", 1001) }, "comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validOrderForm()
			tt.mutate(&form)
			_, err := svc.CreateOrder(ctx, cc, form)
			requireValidationField(t, err, tt.field)
		})
	}

	t.Run("All errors reported together", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, cc, OrderForm{})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		for _, field := range []string{"first_name", "last_name", "phone", "address", "order_date"} {
			assert.Contains(t, verr.Fields, field)
		}
	})

	t.Run("Today and a long multibyte comment are accepted", func(t *testing.T) {
		form := validOrderForm()
		form.Comment = strings.Repeat("ü", 1000)
		_, err := svc.CreateOrder(ctx, cc, form)
		// The cart is empty, so validation passed.
		assert.ErrorIs(t, err, ErrEmptyCart)
	})
}

func TestOrderService_CreateOrderRejectsAnonymousCart(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()

	cc, err := env.resolver.ResolveForSession(ctx, "")
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, cc, validOrderForm())
	assert.ErrorIs(t, err, ErrCustomerRequired)
}

func TestOrderService_CreateOrderRejectsForeignCart(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com", model.RoleUser)
	bob := env.createUser(t, "bob@example.com", model.RoleUser)

	aliceCart, err := env.resolver.ResolveForUser(ctx, alice.ID)
	require.NoError(t, err)
	bobCart, err := env.resolver.ResolveForUser(ctx, bob.ID)
	require.NoError(t, err)

	forged := CartContext{CartID: aliceCart.CartID, CustomerID: bobCart.CustomerID}
	_, err = svc.CreateOrder(ctx, forged, validOrderForm())
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestOrderService_GetOrder(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com", model.RoleUser)
	other := env.createUser(t, "other@example.com", model.RoleUser)
	staff := env.createUser(t, "staff@example.com", model.RoleStaff)
	order := placeOrder(t, env, svc, owner)

	got, err := svc.GetOrder(ctx, Actor{UserID: owner.ID, Role: model.RoleUser}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetOrder(ctx, Actor{UserID: other.ID, Role: model.RoleUser}, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.GetOrder(ctx, Actor{UserID: staff.ID, Role: model.RoleStaff}, order.ID)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, Actor{UserID: staff.ID, Role: model.RoleStaff}, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	orders, err := svc.ListCustomerOrders(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env, svc, notifier := setupOrderServiceTest(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com", model.RoleUser)
	staff := env.createUser(t, "staff@example.com", model.RoleStaff)
	order := placeOrder(t, env, svc, owner)
	staffActor := Actor{UserID: staff.ID, Role: model.RoleStaff}

	_, err := svc.UpdateStatus(ctx, Actor{UserID: owner.ID, Role: model.RoleUser}, order.ID, "completed")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.UpdateStatus(ctx, staffActor, order.ID, "shipped")
	requireValidationField(t, err, "status")

	updated, err := svc.UpdateStatus(ctx, staffActor, order.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, updated.Status)

	_, err = svc.UpdateStatus(ctx, staffActor, order.ID, "new")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.UpdateStatus(ctx, staffActor, order.ID, "completed")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, staffActor, 9999, "completed")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []notification{
		{userID: owner.ID, status: model.OrderStatusInProgress},
		{userID: owner.ID, status: model.OrderStatusCompleted},
	}, notifier.calls)
}

func TestOrderService_UpdateStatusLosesRace(t *testing.T) {
	env, svc, notifier := setupOrderServiceTest(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com", model.RoleUser)
	staff := env.createUser(t, "staff@example.com", model.RoleStaff)
	order := placeOrder(t, env, svc, owner)

	// another staff member completes the order right after this request reads it
	fired := false
	require.NoError(t, env.db.Callback().Query().After("gorm:query").Register("test:complete_order", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "orders" {
			return
		}
		fired = true
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE orders SET status = ? WHERE id = ?", model.OrderStatusCompleted, order.ID).Error)
	}))

	_, err := svc.UpdateStatus(ctx, Actor{UserID: staff.ID, Role: model.RoleStaff}, order.ID, "in_progress")
	require.True(t, fired)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	stored, err := env.orders.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, stored.Status)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Empty(t, notifier.calls)
}

func TestOrderService_CreateOrderRollsBack(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()
	user := env.createUser(t, "buyer@example.com", model.RoleUser)
	category := env.createCategory(t, "Books")
	product := env.createProduct(t, category.ID, "Widget", "199.99")

	cc, err := env.resolver.ResolveForUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(ctx, cc, product.ID)
	require.NoError(t, err)

	// closing the cart is the last write of checkout, after the order insert
	require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("test:fail_cart_close", func(tx *gorm.DB) {
		if tx.Statement.Table == "carts" {
			tx.AddError(errors.New("disk full"))
		}
	}))

	_, err = svc.CreateOrder(ctx, cc, validOrderForm())
	require.Error(t, err)

	var count int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)

	cart, err := env.carts.FindByID(cc.CartID)
	require.NoError(t, err)
	assert.False(t, cart.InOrder)
	assert.Equal(t, 1, cart.TotalItemCount)
}

func TestOrderService_Receipt(t *testing.T) {
	env, svc, _ := setupOrderServiceTest(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com", model.RoleUser)
	other := env.createUser(t, "other@example.com", model.RoleUser)
	order := placeOrder(t, env, svc, owner)

	pdf, ref, err := svc.Receipt(ctx, Actor{UserID: owner.ID, Role: model.RoleUser}, order.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, receipt.Reference(order.ID, order.CreatedAt), ref)

	_, _, err = svc.Receipt(ctx, Actor{UserID: other.ID, Role: model.RoleUser}, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
