package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, public_id, email, name, given_name, family_name, picture,
		provider_subject, role, provider, active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.PublicID,
		&user.Email,
		&user.Name,
		&user.GivenName,
		&user.FamilyName,
		&user.Picture,
		&user.ProviderSubject,
		&user.Role,
		&user.Provider,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user. Timestamps are set by the caller, not by the
// database. A clash with the email uniqueness constraint is reported as
// models.ErrDuplicateEmail so the reconciler can recover by re-reading.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (public_id, email, name, given_name, family_name, picture,
			provider_subject, role, provider, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		user.PublicID,
		user.Email,
		user.Name,
		user.GivenName,
		user.FamilyName,
		user.Picture,
		user.ProviderSubject,
		user.Role,
		user.Provider,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create user: %w", models.ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email. Email comparison is case-sensitive,
// matching how addresses are stored.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by internal id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByPublicID retrieves a user by the opaque public identifier.
func (r *UserRepository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE public_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", publicID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by public id: %w", err)
	}

	return user, nil
}

// UpdateMutable writes the mutable profile fields for a user in a single
// conditional statement. The compare-and-write runs as one atomic unit in
// the database; role, provider, active and created_at are never touched. A
// nil picture keeps the stored value. Returns whether anything changed; on
// change, picture and updated_at are refreshed on the passed user.
func (r *UserRepository) UpdateMutable(ctx context.Context, user *models.User) (bool, error) {
	query := `
		UPDATE users
		SET name = $2,
			given_name = $3,
			family_name = $4,
			picture = COALESCE($5::text, picture),
			provider_subject = $6,
			updated_at = $7
		WHERE id = $1
		  AND (name IS DISTINCT FROM $2
			OR given_name IS DISTINCT FROM $3
			OR family_name IS DISTINCT FROM $4
			OR ($5::text IS NOT NULL AND picture IS DISTINCT FROM $5::text)
			OR provider_subject IS DISTINCT FROM $6)
		RETURNING picture, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.GivenName,
		user.FamilyName,
		user.Picture,
		user.ProviderSubject,
		user.UpdatedAt,
	).Scan(&user.Picture, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Nothing differed.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}

	return true, nil
}

// UpdateNames overwrites the name fields for a user. Used by the profile
// path when a submission carries given/family name overrides.
func (r *UserRepository) UpdateNames(ctx context.Context, id int64, name, given, family *string, updatedAt time.Time) error {
	query := `
		UPDATE users
		SET name = $2, given_name = $3, family_name = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, name, given, family, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user names: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}

	return nil
}
