package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleSuperuser = "superuser"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"` // scrypt credential
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// FileKind separates resumes from profile photos.
type FileKind string

const (
	FileKindResume FileKind = "resume"
	FileKindPhoto  FileKind = "photo"
)

// File is an uploaded PII blob. The content lives encrypted in the blob store at
// StoredLocation; IV and AuthTag are needed together to decrypt it.
type File struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	Kind           FileKind  `json:"kind"`
	FileName       string    `json:"fileName"`
	ContentType    string    `json:"contentType"`
	Size           int64     `json:"size"`
	StoredLocation string    `json:"-"`
	EncryptionIV   string    `json:"-"`
	AuthTag        string    `json:"-"`
	UploadedAt     time.Time `json:"uploadedAt"`
	RetentionUntil time.Time `json:"retentionUntil"`
}
