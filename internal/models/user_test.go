package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRoleValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		role  Role
		valid bool
	}{
		{name: "user role", role: RoleUser, valid: true},
		{name: "admin role", role: RoleAdmin, valid: true},
		{name: "fleet manager role", role: RoleFleetManager, valid: true},
		{name: "empty role", role: Role(""), valid: false},
		{name: "unknown role", role: Role("SUPERUSER"), valid: false},
		{name: "lowercase role", role: Role("user"), valid: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.role.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestRoleAuthority(t *testing.T) {
	t.Parallel()

	if got := RoleFleetManager.Authority(); got != "ROLE_FLEET_MANAGER" {
		t.Errorf("Authority() = %q, want %q", got, "ROLE_FLEET_MANAGER")
	}
	if got := RoleUser.Authority(); got != "ROLE_USER" {
		t.Errorf("Authority() = %q, want %q", got, "ROLE_USER")
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Role
		ok       bool
	}{
		{name: "exact match", input: "ADMIN", expected: RoleAdmin, ok: true},
		{name: "lowercase input", input: "fleet_manager", expected: RoleFleetManager, ok: true},
		{name: "whitespace trimmed", input: " USER ", expected: RoleUser, ok: true},
		{name: "empty input", input: "", ok: false},
		{name: "unknown input", input: "ROOT", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			role, ok := ParseRole(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseRole(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && role != tt.expected {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, role, tt.expected)
			}
		})
	}
}

func TestComposeName(t *testing.T) {
	t.Parallel()

	given := "Ada"
	family := "Lovelace"
	empty := ""

	tests := []struct {
		name     string
		given    *string
		family   *string
		expected *string
	}{
		{name: "both parts", given: &given, family: &family, expected: strPtr("Ada Lovelace")},
		{name: "given only", given: &given, family: nil, expected: strPtr("Ada")},
		{name: "family only", given: nil, family: &family, expected: strPtr("Lovelace")},
		{name: "both nil", given: nil, family: nil, expected: nil},
		{name: "empty strings", given: &empty, family: &empty, expected: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ComposeName(tt.given, tt.family)
			if (got == nil) != (tt.expected == nil) {
				t.Fatalf("ComposeName() = %v, want %v", got, tt.expected)
			}
			if got != nil && *got != *tt.expected {
				t.Errorf("ComposeName() = %q, want %q", *got, *tt.expected)
			}
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	t.Parallel()

	name := "Ada Lovelace"
	user := &User{Email: "ada@example.com", Name: &name}
	if got := user.DisplayName(); got != name {
		t.Errorf("DisplayName() = %q, want %q", got, name)
	}

	anonymous := &User{Email: "ada@example.com"}
	if got := anonymous.DisplayName(); got != "ada@example.com" {
		t.Errorf("DisplayName() = %q, want email fallback", got)
	}
}

func TestNewUserCreatedEvent(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	emittedAt := time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC)
	given := "Ada"
	family := "Lovelace"
	name := "Ada Lovelace"

	user := &User{
		ID:         42,
		PublicID:   uuid.MustParse("3e8e7d2e-0b24-4f4b-b3a4-0a2e8b9f6f3d"),
		Email:      "ada@example.com",
		Name:       &name,
		GivenName:  &given,
		FamilyName: &family,
		Role:       RoleUser,
		Provider:   ProviderGoogle,
		CreatedAt:  createdAt,
	}

	event := NewUserCreatedEvent(user, emittedAt)

	if event.UserID != 42 {
		t.Errorf("UserID = %d, want 42", event.UserID)
	}
	if event.UserUUID != "3e8e7d2e-0b24-4f4b-b3a4-0a2e8b9f6f3d" {
		t.Errorf("UserUUID = %q", event.UserUUID)
	}
	if event.EventType != EventTypeUserCreated {
		t.Errorf("EventType = %q, want %q", event.EventType, EventTypeUserCreated)
	}
	if event.Role != "USER" {
		t.Errorf("Role = %q, want USER", event.Role)
	}
	if event.IdentityProvider != "GOOGLE" {
		t.Errorf("IdentityProvider = %q, want GOOGLE", event.IdentityProvider)
	}
	if event.CreatedAt != "2025-03-01T10:00:00Z" {
		t.Errorf("CreatedAt = %q", event.CreatedAt)
	}
	if event.EventTimestamp != "2025-03-01T10:00:05Z" {
		t.Errorf("EventTimestamp = %q", event.EventTimestamp)
	}
}

func TestNewWelcomeEmailMessage(t *testing.T) {
	t.Parallel()

	name := "Ada Lovelace"
	user := &User{Email: "ada@example.com", Name: &name}

	msg := NewWelcomeEmailMessage(user)

	if msg.RecipientEmail != "ada@example.com" {
		t.Errorf("RecipientEmail = %q", msg.RecipientEmail)
	}
	if msg.RecipientName != name {
		t.Errorf("RecipientName = %q, want %q", msg.RecipientName, name)
	}
	if msg.EmailType != EmailTypeWelcome {
		t.Errorf("EmailType = %q, want %q", msg.EmailType, EmailTypeWelcome)
	}
	if msg.TemplateData["userName"] != name {
		t.Errorf("TemplateData[userName] = %q, want %q", msg.TemplateData["userName"], name)
	}
}

func strPtr(s string) *string {
	return &s
}
