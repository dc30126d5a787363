// Package token mints and validates the locally signed session credential.
package token

import (
	"fmt"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// Issuer mints and validates self-contained HS256-signed session tokens.
// Tokens are never persisted; validity is established from signature,
// expiry and subject alone.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewIssuer creates a token issuer. refreshTTL must be strictly greater
// than accessTTL; configuration loading enforces that before this point.
func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *Issuer {
	return &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue mints a short-lived access token for the user.
func (i *Issuer) Issue(user *models.User) (string, error) {
	return i.mint(user, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the user.
func (i *Issuer) IssueRefresh(user *models.User) (string, error) {
	return i.mint(user, i.refreshTTL)
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) mint(user *models.User, ttl time.Duration) (string, error) {
	now := i.now().UTC().Truncate(time.Second)

	builder := jwt.NewBuilder().
		Subject(user.Email).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim("userId", user.PublicID.String()).
		Claim("roles", []string{user.Role.Authority()})

	if user.GivenName != nil {
		builder = builder.Claim("givenName", *user.GivenName)
	}
	if user.FamilyName != nil {
		builder = builder.Claim("familyName", *user.FamilyName)
	}
	if user.Picture != nil {
		builder = builder.Claim("picture", *user.Picture)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Validate reports whether the token carries a valid signature, is
// unexpired, and names expectedSubject as its subject. A well-formed but
// expired token and an unverifiable one both fail, but are logged apart.
func (i *Issuer) Validate(tokenString, expectedSubject string) bool {
	tok, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, i.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		i.logger.Debug("token_rejected", zap.String("reason", "malformed_or_bad_signature"), zap.Error(err))
		return false
	}

	if !i.now().Before(tok.Expiration()) {
		i.logger.Debug("token_rejected", zap.String("reason", "expired"),
			zap.Time("expired_at", tok.Expiration()), zap.Error(models.ErrTokenExpired))
		return false
	}

	if tok.Subject() != expectedSubject {
		i.logger.Debug("token_rejected", zap.String("reason", "subject_mismatch"))
		return false
	}

	return true
}

// ExtractClaim verifies the token signature and returns the named claim.
// Registered claims (sub, exp, iat) are resolved like any other key.
func (i *Issuer) ExtractClaim(tokenString, key string) (any, error) {
	tok, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, i.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}

	value, ok := tok.Get(key)
	if !ok {
		return nil, fmt.Errorf("claim %q not present: %w", key, models.ErrTokenInvalid)
	}

	return value, nil
}
