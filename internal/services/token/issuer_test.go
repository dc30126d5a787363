package token

import (
	"testing"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testUser() *models.User {
	given := "Ada"
	family := "Lovelace"
	return &models.User{
		ID:         1,
		PublicID:   uuid.MustParse("3e8e7d2e-0b24-4f4b-b3a4-0a2e8b9f6f3d"),
		Email:      "ada@example.com",
		GivenName:  &given,
		FamilyName: &family,
		Role:       models.RoleFleetManager,
		Provider:   models.ProviderGoogle,
		Active:     true,
	}
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	return NewIssuer(testSecret, 15*time.Minute, time.Hour, zap.NewNop())
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	user := testUser()

	tokenString, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if !issuer.Validate(tokenString, user.Email) {
		t.Error("Validate() = false for a freshly issued token")
	}
}

func TestValidateRejectsWrongSubject(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	tokenString, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if issuer.Validate(tokenString, "someone-else@example.com") {
		t.Error("Validate() = true for a mismatched subject")
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	user := testUser()
	tokenString, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip a single byte of the signature segment.
	tampered := []byte(tokenString)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	if issuer.Validate(string(tampered), user.Email) {
		t.Error("Validate() = true for a tampered token")
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	other := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), 15*time.Minute, time.Hour, zap.NewNop())
	user := testUser()

	tokenString, err := other.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if issuer.Validate(tokenString, user.Email) {
		t.Error("Validate() = true for a token signed with a different key")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	user := testUser()

	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issuedAt }

	tokenString, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Still valid one second before expiry.
	issuer.now = func() time.Time { return issuedAt.Add(15*time.Minute - time.Second) }
	if !issuer.Validate(tokenString, user.Email) {
		t.Error("Validate() = false before expiry")
	}

	// Invalid at the expiry instant.
	issuer.now = func() time.Time { return issuedAt.Add(15 * time.Minute) }
	if issuer.Validate(tokenString, user.Email) {
		t.Error("Validate() = true at the expiry instant")
	}
}

func TestRefreshExpiryExceedsAccessExpiry(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	user := testUser()

	instant := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return instant }

	accessToken, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	refreshToken, err := issuer.IssueRefresh(user)
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}

	accessExp, err := issuer.ExtractClaim(accessToken, "exp")
	if err != nil {
		t.Fatalf("ExtractClaim(exp) error = %v", err)
	}
	refreshExp, err := issuer.ExtractClaim(refreshToken, "exp")
	if err != nil {
		t.Fatalf("ExtractClaim(exp) error = %v", err)
	}

	accessTime, ok := accessExp.(time.Time)
	if !ok {
		t.Fatalf("access exp claim is %T, want time.Time", accessExp)
	}
	refreshTime, ok := refreshExp.(time.Time)
	if !ok {
		t.Fatalf("refresh exp claim is %T, want time.Time", refreshExp)
	}

	if !refreshTime.After(accessTime) {
		t.Errorf("refresh expiry %v does not exceed access expiry %v", refreshTime, accessTime)
	}
}

func TestExtractClaim(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	user := testUser()

	tokenString, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	sub, err := issuer.ExtractClaim(tokenString, "sub")
	if err != nil {
		t.Fatalf("ExtractClaim(sub) error = %v", err)
	}
	if sub != user.Email {
		t.Errorf("sub claim = %v, want %q", sub, user.Email)
	}

	userID, err := issuer.ExtractClaim(tokenString, "userId")
	if err != nil {
		t.Fatalf("ExtractClaim(userId) error = %v", err)
	}
	if userID != user.PublicID.String() {
		t.Errorf("userId claim = %v, want %q", userID, user.PublicID.String())
	}

	roles, err := issuer.ExtractClaim(tokenString, "roles")
	if err != nil {
		t.Fatalf("ExtractClaim(roles) error = %v", err)
	}
	roleList, ok := roles.([]any)
	if !ok || len(roleList) != 1 || roleList[0] != "ROLE_FLEET_MANAGER" {
		t.Errorf("roles claim = %v, want [ROLE_FLEET_MANAGER]", roles)
	}

	if _, err := issuer.ExtractClaim(tokenString, "nonexistent"); err == nil {
		t.Error("ExtractClaim() for a missing claim should error")
	}

	if _, err := issuer.ExtractClaim("not-a-token", "sub"); err == nil {
		t.Error("ExtractClaim() for a malformed token should error")
	}
}
