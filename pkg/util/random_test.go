package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionToken(t *testing.T) {
	a := NewSessionToken()
	b := NewSessionToken()

	assert.NotEqual(t, a, b)
	assert.True(t, IsValidSessionToken(a))
	assert.True(t, IsValidSessionToken(b))
}

func TestIsValidSessionToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "Empty", token: "", want: false},
		{name: "Garbage", token: "not-a-token", want: false},
		{name: "SQL-ish", token: "1' OR '1'='1", want: false},
		{name: "Version 1 UUID", token: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: false},
		{name: "Version 4 UUID", token: "3b241101-e2bb-4255-8caf-4136c566a962", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidSessionToken(tt.token))
		})
	}
}
