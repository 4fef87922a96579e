package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
	}{
		{name: "nil", err: nil, wantCode: InternalServerError},
		{name: "record not found", err: fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), context: "get product", wantCode: ResourceNotFound},
		{name: "sqlite unique slug", err: errors.New("UNIQUE constraint failed: categories.slug"), wantCode: ValidationDuplicateSlug},
		{name: "postgres unique email", err: errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`), wantCode: AuthEmailAlreadyExists},
		{name: "foreign key category", err: errors.New(`insert or update on table "products" violates foreign key constraint "fk_products_category"`), wantCode: CategoryNotFound},
		{name: "still referenced", err: errors.New(`update or delete on table "carts" violates foreign key constraint "fk_orders_cart" on table "orders" DETAIL: Key (id)=(1) is still referenced`), wantCode: ResourceConflict},
		{name: "not null", err: errors.New("NOT NULL constraint failed: products.title"), wantCode: ValidationRequired},
		{name: "timeout", err: errors.New("dial tcp: i/o timeout"), wantCode: InternalExternalAPI},
		{name: "unknown", err: errors.New("boom"), context: "create order", wantCode: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestParseError_NotFoundMessageUsesContext(t *testing.T) {
	info := ParseError(gorm.ErrRecordNotFound, "get category")
	assert.Equal(t, "Category not found", info.Message)

	info = ParseError(errors.New("boom"), "create order")
	assert.Equal(t, "Failed to create order, please try again later", info.Message)
}
