package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe code and message pair
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps storage errors to client-safe codes without leaking SQL.
// context names the operation, e.g. "create product".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Internal server error"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error())
	}

	errLower := strings.ToLower(err.Error())

	// postgres 23505 / sqlite "UNIQUE constraint failed"
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// postgres 23503 / sqlite "FOREIGN KEY constraint failed"
	if strings.Contains(errLower, "foreign key constraint") {
		return parseForeignKeyError(errLower)
	}

	// postgres 23502 / sqlite "NOT NULL constraint failed"
	if strings.Contains(errLower, "not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "A field value is out of range"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{Code: InternalExternalAPI, Message: "A backing service is unavailable, please retry"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	errLower = strings.ToLower(errLower)
	switch {
	case strings.Contains(errLower, "slug"):
		return ErrorInfo{Code: ValidationDuplicateSlug, Message: "This slug is already taken"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
	case strings.Contains(errLower, "cart_product") || strings.Contains(errLower, "cart_items"):
		return ErrorInfo{Code: ResourceConflict, Message: "The cart was modified concurrently, please retry"}
	case strings.Contains(errLower, "orders"):
		return ErrorInfo{Code: CartClosed, Message: "An order already exists for this cart"}
	default:
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
	}
}

func parseForeignKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "still referenced"):
		return ErrorInfo{Code: ResourceConflict, Message: "The record is still referenced and cannot be deleted"}
	case strings.Contains(errLower, "category_id") || strings.Contains(errLower, "fk_products_category"):
		return ErrorInfo{Code: CategoryNotFound, Message: "Category does not exist"}
	case strings.Contains(errLower, "product_id"):
		return ErrorInfo{Code: ProductNotFound, Message: "Product does not exist"}
	default:
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	}
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)
	for _, name := range []string{"category", "product", "cart", "order", "feature", "user"} {
		if strings.Contains(contextLower, name) {
			return strings.ToUpper(name[:1]) + name[1:] + " not found"
		}
	}
	return "The requested record was not found"
}

func defaultMessage(context string) string {
	if context == "" {
		return "Internal server error, please try again later"
	}
	return "Failed to " + context + ", please try again later"
}

// ParseAndRespond parses err and writes it with statusCode
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
