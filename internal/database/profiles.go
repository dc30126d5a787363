package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/identity-api/internal/models"
)

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, phone, date_of_birth, driving_license_number,
		passport_number, preferred_language, country_of_residence, created_at, updated_at`

func scanProfile(row *sql.Row) (*models.Profile, error) {
	profile := &models.Profile{}
	err := row.Scan(
		&profile.UserID,
		&profile.Phone,
		&profile.DateOfBirth,
		&profile.DrivingLicenseNumber,
		&profile.PassportNumber,
		&profile.PreferredLanguage,
		&profile.CountryOfResidence,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// GetByUserID retrieves the profile attached to a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for user %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Upsert creates the profile row on first submission and patches it on
// subsequent ones. Nil patch fields keep their stored values; the whole
// upsert-with-partial-patch is a single atomic statement.
func (r *ProfileRepository) Upsert(ctx context.Context, userID int64, patch *models.ProfilePatch, now time.Time) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, phone, date_of_birth, driving_license_number,
			passport_number, preferred_language, country_of_residence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			date_of_birth = COALESCE(EXCLUDED.date_of_birth, profiles.date_of_birth),
			driving_license_number = COALESCE(EXCLUDED.driving_license_number, profiles.driving_license_number),
			passport_number = COALESCE(EXCLUDED.passport_number, profiles.passport_number),
			preferred_language = COALESCE(EXCLUDED.preferred_language, profiles.preferred_language),
			country_of_residence = COALESCE(EXCLUDED.country_of_residence, profiles.country_of_residence),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + profileColumns + `
	`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query,
		userID,
		patch.Phone,
		patch.DateOfBirth,
		patch.DrivingLicenseNumber,
		patch.PassportNumber,
		patch.PreferredLanguage,
		patch.CountryOfResidence,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	return profile, nil
}
