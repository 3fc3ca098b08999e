package storage

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"portfolio_service/internal/models"
)

// Storage is the persistence service behind the auth and upload flows.
// Lookups that find nothing return common.ErrNotFound; CreateUser returns
// common.ErrAlreadyExists for a taken email.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error

	// Encrypted uploads
	CreateFile(ctx context.Context, file models.File) error
	GetFile(ctx context.Context, fileID uuid.UUID) (models.File, error)
	ListFiles(ctx context.Context, userID uuid.UUID, kind models.FileKind) ([]models.File, error)
	ListExpiredFiles(ctx context.Context, now time.Time, offset, limit int) ([]models.File, error)
	DeleteFile(ctx context.Context, fileID uuid.UUID) error

	Close()
}
