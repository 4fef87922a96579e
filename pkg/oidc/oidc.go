// Package oidc verifies ID tokens issued by an external identity provider.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var ErrMissingEmail = errors.New("id token carries no email claim")

// Identity is what the storefront needs from a verified ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type Verifier struct {
	issuer   string
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier discovers the issuer's keys and binds the verifier to clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %s: %w", issuer, err)
	}

	logger.Info("OIDC provider configured", map[string]interface{}{
		"issuer": issuer,
	})
	return &Verifier{
		issuer:   issuer,
		verifier: provider.Verifier(&gooidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks signature, audience and expiry, then extracts the identity.
// The subject is namespaced by issuer so two providers never collide.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, ErrMissingEmail
	}

	return &Identity{
		Subject:       SubjectKey(v.issuer, token.Subject),
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

func SubjectKey(issuer, subject string) string {
	return strings.TrimSuffix(issuer, "/") + "|" + subject
}
