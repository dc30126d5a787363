// Package oidc verifies third-party identity tokens and extracts the claims
// used for reconciliation. It is the trusted input boundary: everything past
// it assumes the claims were asserted by the configured provider.
package oidc

import (
	"context"
	"fmt"

	"github.com/benvon/identity-api/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// Extractor verifies provider ID tokens against the provider's JWKS and
// maps them to ProviderClaims.
type Extractor struct {
	jwks   *JWKSManager
	issuer string
	logger *zap.Logger
}

// NewExtractor creates a claims extractor for the given issuer.
func NewExtractor(jwks *JWKSManager, issuer string, logger *zap.Logger) *Extractor {
	return &Extractor{
		jwks:   jwks,
		issuer: issuer,
		logger: logger,
	}
}

// Extract verifies the raw ID token and returns its identity claims. Any
// verification failure, issuer mismatch, or missing email claim maps to
// models.ErrInvalidAssertion; a JWKS fetch failure surfaces as-is since it
// says nothing about the token.
func (e *Extractor) Extract(ctx context.Context, rawToken string) (*models.ProviderClaims, error) {
	keys, err := e.jwks.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	tok, err := jwt.Parse([]byte(rawToken), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		e.logger.Debug("assertion_rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidAssertion, err)
	}

	if tok.Issuer() != e.issuer {
		e.logger.Debug("assertion_rejected",
			zap.String("reason", "issuer_mismatch"),
			zap.String("issuer", tok.Issuer()),
		)
		return nil, fmt.Errorf("%w: unexpected issuer", models.ErrInvalidAssertion)
	}

	email := stringClaim(tok, "email")
	if email == "" {
		return nil, fmt.Errorf("%w: missing email claim", models.ErrInvalidAssertion)
	}

	return &models.ProviderClaims{
		Subject:    tok.Subject(),
		Email:      email,
		Name:       stringClaim(tok, "name"),
		GivenName:  stringClaim(tok, "given_name"),
		FamilyName: stringClaim(tok, "family_name"),
		Picture:    stringClaim(tok, "picture"),
	}, nil
}

func stringClaim(tok jwt.Token, key string) string {
	value, ok := tok.Get(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}
