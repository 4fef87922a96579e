package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized messages.

const (
	// Authentication
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthOIDCDisabled       = "AUTH_OIDC_DISABLED"

	// Authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzStaffOnly    = "AUTHZ_STAFF_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// Validation
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"
	ValidationDuplicateSlug = "VALIDATION_DUPLICATE_SLUG"

	// Resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// Catalog
	CategoryNotFound = "CATEGORY_NOT_FOUND"
	ProductNotFound  = "PRODUCT_NOT_FOUND"
	FeatureNotFound  = "FEATURE_NOT_FOUND"
	RatingInvalid    = "RATING_INVALID"

	// Cart
	CartNotFound         = "CART_NOT_FOUND"
	CartItemNotFound     = "CART_ITEM_NOT_FOUND"
	CartClosed           = "CART_CLOSED"
	CartEmpty            = "CART_EMPTY"
	CartInvalidQuantity  = "CART_INVALID_QUANTITY"
	CartCustomerRequired = "CART_CUSTOMER_REQUIRED"

	// Orders
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"

	// Upload
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// Throttling
	RateLimited = "RATE_LIMITED"

	// Internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
