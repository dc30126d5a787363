package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role assigned to a user when the record is
// created. It is never changed by reconciliation; only an administrative
// path may alter it.
type Role string

const (
	RoleUser         Role = "USER"
	RoleAdmin        Role = "ADMIN"
	RoleFleetManager Role = "FLEET_MANAGER"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleFleetManager:
		return true
	}
	return false
}

// Authority returns the namespaced authority string embedded in session
// token claims, e.g. ROLE_FLEET_MANAGER.
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// ParseRole converts a string to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Provider identifies the identity provider that asserted the user.
type Provider string

const (
	ProviderGoogle Provider = "GOOGLE"
	ProviderLocal  Provider = "LOCAL"
	ProviderGitHub Provider = "GITHUB"
)

// Valid reports whether the provider tag is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderLocal, ProviderGitHub:
		return true
	}
	return false
}

// User represents a user in the system. ID is the internal database key and
// is never exposed for lookups outside internal joins; PublicID is the
// opaque identifier safe for external exposure.
type User struct {
	ID              int64     `json:"-"`
	PublicID        uuid.UUID `json:"userId"`
	Email           string    `json:"email"`
	Name            *string   `json:"name,omitempty"`
	GivenName       *string   `json:"givenName,omitempty"`
	FamilyName      *string   `json:"familyName,omitempty"`
	Picture         *string   `json:"picture,omitempty"`
	ProviderSubject *string   `json:"-"`
	Role            Role      `json:"role"`
	Provider        Provider  `json:"identityProvider"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DisplayName returns the best available human-readable name for the user,
// falling back to the email when no name parts are stored.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// ComposeName builds a display name from the given and family name parts.
// It returns nil when both parts are absent.
func ComposeName(given, family *string) *string {
	parts := make([]string, 0, 2)
	if given != nil && *given != "" {
		parts = append(parts, *given)
	}
	if family != nil && *family != "" {
		parts = append(parts, *family)
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}
