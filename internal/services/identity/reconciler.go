// Package identity reconciles verified provider claims into durable local
// user records.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/identity-api/internal/database"
	"github.com/benvon/identity-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler finds-or-creates user records from verified provider claims.
// Role and creation metadata are written exactly once, at creation; later
// reconciliations only merge mutable fields.
type Reconciler struct {
	users    database.UserRepositoryInterface
	profiles database.ProfileRepositoryInterface
	provider models.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconciler creates a reconciler writing records for the given provider.
func NewReconciler(users database.UserRepositoryInterface, profiles database.ProfileRepositoryInterface, provider models.Provider, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		users:    users,
		profiles: profiles,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile looks up the user by email and either merges the mutable claim
// fields into the existing record or creates a new one. The returned bool
// reports whether a record was created. A concurrent first-login losing the
// insert race recovers by re-reading the winner; the email uniqueness
// constraint in storage is the authoritative guard.
func (r *Reconciler) Reconcile(ctx context.Context, claims *models.ProviderClaims, requestedRole models.Role) (*models.User, bool, error) {
	if claims == nil || claims.Email == "" {
		return nil, false, fmt.Errorf("missing email claim: %w", models.ErrInvalidAssertion)
	}

	existing, err := r.users.GetByEmail(ctx, claims.Email)
	if err == nil {
		updated, err := r.merge(ctx, existing, claims)
		if err != nil {
			return nil, false, err
		}
		return updated, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, storageErr(err)
	}

	user := r.newUser(claims, requestedRole)
	if err := r.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			// Lost a concurrent first-login race; the other writer's
			// record is authoritative.
			winner, readErr := r.users.GetByEmail(ctx, claims.Email)
			if readErr != nil {
				return nil, false, storageErr(readErr)
			}
			r.logger.Info("reconcile_race_recovered", zap.String("public_id", winner.PublicID.String()))
			return winner, false, nil
		}
		return nil, false, storageErr(err)
	}

	r.logger.Info("user_created",
		zap.String("public_id", user.PublicID.String()),
		zap.String("role", string(user.Role)),
		zap.String("provider", string(user.Provider)),
	)
	return user, true, nil
}

// merge applies differing mutable claim fields to an existing record. Role
// and created_at are never touched. The compare-and-write is atomic at the
// storage layer.
func (r *Reconciler) merge(ctx context.Context, existing *models.User, claims *models.ProviderClaims) (*models.User, error) {
	desired := *existing
	desired.GivenName = pickName(claims.GivenName, existing.GivenName)
	desired.FamilyName = pickName(claims.FamilyName, existing.FamilyName)
	desired.Name = composeOrFallback(claims, desired.GivenName, desired.FamilyName)
	desired.Picture = optional(claims.Picture) // nil keeps the stored value
	desired.ProviderSubject = optional(claims.Subject)
	desired.UpdatedAt = r.now().UTC()

	changed, err := r.users.UpdateMutable(ctx, &desired)
	if err != nil {
		return nil, storageErr(err)
	}
	if !changed {
		return existing, nil
	}

	r.logger.Debug("user_updated", zap.String("public_id", desired.PublicID.String()))
	return &desired, nil
}

func (r *Reconciler) newUser(claims *models.ProviderClaims, requestedRole models.Role) *models.User {
	role := models.RoleUser
	if requestedRole.Valid() {
		role = requestedRole
	}

	now := r.now().UTC()
	given := optional(claims.GivenName)
	family := optional(claims.FamilyName)

	return &models.User{
		PublicID:        uuid.New(),
		Email:           claims.Email,
		Name:            composeOrFallback(claims, given, family),
		GivenName:       given,
		FamilyName:      family,
		Picture:         optional(claims.Picture),
		ProviderSubject: optional(claims.Subject),
		Role:            role,
		Provider:        r.provider,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UpsertProfile applies a profile submission for an existing user. Name
// overrides in the patch update the user's display fields first; the profile
// row is then created or partially patched, leaving unsupplied fields alone.
func (r *Reconciler) UpsertProfile(ctx context.Context, userID int64, patch *models.ProfilePatch) (*models.User, *models.Profile, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, storageErr(err)
	}

	if namesDiffer(user, patch) {
		given := pickOverride(patch.GivenName, user.GivenName)
		family := pickOverride(patch.FamilyName, user.FamilyName)
		name := models.ComposeName(given, family)
		now := r.now().UTC()
		if err := r.users.UpdateNames(ctx, user.ID, name, given, family, now); err != nil {
			return nil, nil, storageErr(err)
		}
		user.GivenName = given
		user.FamilyName = family
		user.Name = name
		user.UpdatedAt = now
	}

	profile, err := r.profiles.Upsert(ctx, user.ID, patch, r.now().UTC())
	if err != nil {
		return nil, nil, storageErr(err)
	}

	return user, profile, nil
}

// Profile returns the stored profile for a user, or nil when none exists.
func (r *Reconciler) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := r.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return profile, nil
}

func namesDiffer(user *models.User, patch *models.ProfilePatch) bool {
	return (patch.GivenName != nil && !equalStr(patch.GivenName, user.GivenName)) ||
		(patch.FamilyName != nil && !equalStr(patch.FamilyName, user.FamilyName))
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// pickName prefers the incoming claim value, keeping the stored one when the
// claim is absent.
func pickName(incoming string, stored *string) *string {
	if incoming != "" {
		return &incoming
	}
	return stored
}

// pickOverride prefers a supplied patch value over the stored one.
func pickOverride(patch, stored *string) *string {
	if patch != nil {
		return patch
	}
	return stored
}

// composeOrFallback builds a display name from the name parts, falling back
// to the provider's full-name claim.
func composeOrFallback(claims *models.ProviderClaims, given, family *string) *string {
	if name := models.ComposeName(given, family); name != nil {
		return name
	}
	return optional(claims.Name)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}
