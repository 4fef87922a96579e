package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderForm() map[string]interface{} {
	return map[string]interface{}{
		"first_name":  "Ada",
		"last_name":   "Lovelace",
		"phone":       "+44 20 7946 0000",
		"address":     "12 St James's Square",
		"buying_type": "delivery",
		"order_date":  time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
	}
}

// checkout puts one product in the user's cart and places an order.
func checkout(t *testing.T, srv *testServer, token string) map[string]interface{} {
	t.Helper()
	category := srv.createCategory(t, "Checkout")
	product := srv.createProduct(t, category.ID, "Item", "199.99", nil)

	w := srv.do(t, http.MethodPost, "/cart/items", map[string]interface{}{"product_id": product.ID}, withToken(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = srv.do(t, http.MethodPatch, fmt.Sprintf("/cart/items/%d", product.ID), `{"quantity": 2}`, withToken(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/orders", orderForm(), withToken(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeJSON(t, w)["order"].(map[string]interface{})
}

func TestOrderController_Checkout(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.createUser(t, "buyer@example.com", model.RoleUser)

	order := checkout(t, srv, token)
	assert.Equal(t, "new", order["status"])
	assert.Equal(t, "delivery", order["buying_type"])
	assertMoney(t, "399.98", order["total_price"])

	// the ordered cart is closed; the next request gets a new empty one
	w := srv.do(t, http.MethodGet, "/cart", nil, withToken(token))
	require.Equal(t, http.StatusOK, w.Code)
	cart := cartOf(t, decodeJSON(t, w))
	assert.NotEqual(t, order["cart_id"], cart["id"])
	assert.Equal(t, float64(0), cart["total_item_count"])

	w = srv.do(t, http.MethodPost, "/orders", orderForm(), withToken(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CART_EMPTY", decodeJSON(t, w)["error"])

	w = srv.do(t, http.MethodGet, "/orders", nil, withToken(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeJSON(t, w)["count"])
}

func TestOrderController_CheckoutRejections(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.createUser(t, "buyer@example.com", model.RoleUser)
	category := srv.createCategory(t, "Phones")
	product := srv.createProduct(t, category.ID, "Phone", "10.00", nil)

	t.Run("anonymous cart", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/cart/items", map[string]interface{}{"product_id": product.ID})
		require.Equal(t, http.StatusOK, w.Code)
		session := w.Header().Get(testCartConfig.SessionHeader)

		w = srv.do(t, http.MethodPost, "/orders", orderForm(), withCartSession(session))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "CART_CUSTOMER_REQUIRED", decodeJSON(t, w)["error"])
	})

	t.Run("invalid form", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/cart/items", map[string]interface{}{"product_id": product.ID}, withToken(token))
		require.Equal(t, http.StatusOK, w.Code)

		form := orderForm()
		form["first_name"] = ""
		form["buying_type"] = "drone"
		form["order_date"] = "2001-01-01"
		w = srv.do(t, http.MethodPost, "/orders", form, withToken(token))
		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := decodeJSON(t, w)["fields"].(map[string]interface{})
		assert.Contains(t, fields, "first_name")
		assert.Contains(t, fields, "buying_type")
		assert.Contains(t, fields, "order_date")
	})
}

func TestOrderController_AccessAndStatus(t *testing.T) {
	srv := newTestServer(t)
	_, buyerToken := srv.createUser(t, "buyer@example.com", model.RoleUser)
	_, otherToken := srv.createUser(t, "other@example.com", model.RoleUser)
	_, staffToken := srv.createUser(t, "staff@example.com", model.RoleStaff)

	order := checkout(t, srv, buyerToken)
	path := fmt.Sprintf("/orders/%v", order["id"])

	w := srv.do(t, http.MethodGet, path, nil, withToken(buyerToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, path, nil, withToken(otherToken))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decodeJSON(t, w)["error"])

	w = srv.do(t, http.MethodGet, path, nil, withToken(staffToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPut, path+"/status", map[string]interface{}{"status": "in_progress"}, withToken(buyerToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPut, path+"/status", map[string]interface{}{"status": "shipped"}, withToken(staffToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["fields"], "status")

	w = srv.do(t, http.MethodPut, path+"/status", map[string]interface{}{"status": "is_ready"}, withToken(staffToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "is_ready", decodeJSON(t, w)["order"].(map[string]interface{})["status"])

	w = srv.do(t, http.MethodPut, path+"/status", map[string]interface{}{"status": "in_progress"}, withToken(staffToken))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ORDER_INVALID_TRANSITION", decodeJSON(t, w)["error"])

	w = srv.do(t, http.MethodGet, "/orders/0", nil, withToken(buyerToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_Receipt(t *testing.T) {
	srv := newTestServer(t)
	_, buyerToken := srv.createUser(t, "buyer@example.com", model.RoleUser)
	_, otherToken := srv.createUser(t, "other@example.com", model.RoleUser)

	order := checkout(t, srv, buyerToken)
	path := fmt.Sprintf("/orders/%v/receipt", order["id"])

	w := srv.do(t, http.MethodGet, path, nil, withToken(buyerToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="`))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = srv.do(t, http.MethodGet, path, nil, withToken(otherToken))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
