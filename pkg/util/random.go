package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionToken returns an opaque token that keys an anonymous cart.
func NewSessionToken() string {
	return uuid.New().String()
}

// IsValidSessionToken rejects anything that NewSessionToken could not have produced.
func IsValidSessionToken(token string) bool {
	if token == "" {
		return false
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return false
	}
	return parsed.Version() == 4 && strings.EqualFold(parsed.String(), token)
}
