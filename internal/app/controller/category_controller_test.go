package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryController_CRUD(t *testing.T) {
	srv := newTestServer(t)
	_, ownerToken := srv.createUser(t, "owner@example.com", model.RoleUser)
	_, otherToken := srv.createUser(t, "other@example.com", model.RoleUser)

	w := srv.do(t, http.MethodPost, "/categories", map[string]interface{}{"name": "Home Audio"}, withToken(ownerToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeJSON(t, w)
	assert.Equal(t, "home-audio", created["slug"])
	path := fmt.Sprintf("/categories/%v", created["id"])

	w = srv.do(t, http.MethodPost, "/categories", map[string]interface{}{"name": " "}, withToken(ownerToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["fields"], "name")

	w = srv.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Home Audio", decodeJSON(t, w)["name"])

	w = srv.do(t, http.MethodPut, path, map[string]interface{}{"name": "Hi-Fi"}, withToken(otherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPut, path, map[string]interface{}{"name": "Hi-Fi"}, withToken(ownerToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hi-Fi", decodeJSON(t, w)["name"])

	w = srv.do(t, http.MethodDelete, path, nil, withToken(ownerToken))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", decodeJSON(t, w)["error"])
}

func TestCategoryController_List(t *testing.T) {
	srv := newTestServer(t)
	srv.createCategory(t, "Phones")
	srv.createCategory(t, "Books")
	srv.createCategory(t, "Laptops")

	w := srv.do(t, http.MethodGet, "/categories?ordering=name&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.Equal(t, float64(3), body["count"])
	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "Books", results[0].(map[string]interface{})["name"])

	w = srv.do(t, http.MethodGet, "/categories?search=lap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeJSON(t, w)["count"])

	w = srv.do(t, http.MethodGet, "/categories?page_size=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
