package database

import (
	"context"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the interface for user repository operations
// This interface enables better testability by allowing mock implementations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPublicID(ctx context.Context, publicID uuid.UUID) (*models.User, error)
	UpdateMutable(ctx context.Context, user *models.User) (bool, error)
	UpdateNames(ctx context.Context, id int64, name, given, family *string, updatedAt time.Time) error
}

// ProfileRepositoryInterface defines the interface for profile repository operations
type ProfileRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	Upsert(ctx context.Context, userID int64, patch *models.ProfilePatch, now time.Time) (*models.Profile, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface    = (*UserRepository)(nil)
	_ ProfileRepositoryInterface = (*ProfileRepository)(nil)
)
