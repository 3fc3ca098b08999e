package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"portfolio_service/internal/auth"
	"portfolio_service/internal/blobstore"
	"portfolio_service/internal/common"
	"portfolio_service/internal/cryptox"
	"portfolio_service/internal/models"
	"portfolio_service/internal/storage"
)

const (
	DefaultRetentionDays = 30

	// dummyPassword is hashed once at start-up so that logins for unknown
	// emails still pay for one scrypt derivation.
	dummyPassword = "timing-equalizer-not-a-password"
)

var (
	ErrMissingCredentials = fmt.Errorf("%w: email and password are required", common.ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email format", common.ErrValidation)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters and contain uppercase, lowercase, number, and special character", common.ErrValidation, minPasswordLen)
	ErrUserExists         = fmt.Errorf("%w: user already exists", common.ErrAlreadyExists)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	Upload(ctx context.Context, in UploadInput) (models.File, error)
	ListFiles(ctx context.Context, userID uuid.UUID, kind models.FileKind) ([]models.File, error)
	OpenFile(ctx context.Context, userID, fileID uuid.UUID) (models.File, []byte, error)
	DeleteFile(ctx context.Context, userID, fileID uuid.UUID) error
	SubmitContact(ctx context.Context, in ContactInput) error
	PurgeExpired(ctx context.Context, offset, limit int) (purged, failed int, err error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult is what register and login hand back to the transport layer:
// the user plus a fresh access/refresh token pair.
type AuthResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

// Deps are the collaborators of the service. All of them are required.
type Deps struct {
	Storage   storage.Storage
	Blobs     blobstore.Store
	Hasher    *auth.PasswordHasher
	Codec     *auth.Codec
	Encryptor *cryptox.FileEncryptor
	Log       *slog.Logger
}

type Option func(*service)

// WithSuperusers lists emails that get the superuser role at registration.
func WithSuperusers(emails ...string) Option {
	return func(s *service) {
		for _, e := range emails {
			if e = normalizeEmail(e); e != "" {
				s.superusers[e] = struct{}{}
			}
		}
	}
}

// WithRetentionDays sets how long uploads are kept before the purge job
// removes them.
func WithRetentionDays(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.retention = time.Duration(days) * 24 * time.Hour
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

type service struct {
	storage   storage.Storage
	blobs     blobstore.Store
	hasher    *auth.PasswordHasher
	codec     *auth.Codec
	encryptor *cryptox.FileEncryptor
	log       *slog.Logger

	superusers map[string]struct{}
	retention  time.Duration
	now        func() time.Time
	dummyHash  string
}

func NewService(deps Deps, opts ...Option) (*service, error) {
	const op = "service.NewService"

	if deps.Storage == nil || deps.Blobs == nil || deps.Hasher == nil || deps.Codec == nil || deps.Encryptor == nil {
		return nil, fmt.Errorf("%s: %w: missing dependency", op, common.ErrConfiguration)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	s := &service{
		storage:    deps.Storage,
		blobs:      deps.Blobs,
		hasher:     deps.Hasher,
		codec:      deps.Codec,
		encryptor:  deps.Encryptor,
		log:        log,
		superusers: make(map[string]struct{}),
		retention:  DefaultRetentionDays * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.dummyHash = dummy

	return s, nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	const op = "service.Register"

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, ErrMissingCredentials
	}
	if !IsValidEmail(email) {
		return AuthResult{}, ErrInvalidEmail
	}
	if !IsStrongPassword(in.Password) {
		return AuthResult{}, ErrWeakPassword
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	role := models.RoleUser
	if _, ok := s.superusers[email]; ok {
		role = models.RoleSuperuser
	}

	user, err := s.storage.CreateUser(ctx, models.User{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return AuthResult{}, ErrUserExists
		}
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.issue(op, user)
}

func (s *service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "service.Login"

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.storage.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record last login",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
	} else {
		user.LastLoginAt = &now
	}

	return s.issue(op, user)
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "service.GetUser"

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service.ListUsers"

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// issue signs the token pair for user. The role is embedded so the page gate
// can authorize without a storage lookup.
func (s *service) issue(op string, user models.User) (AuthResult, error) {
	access, err := s.codec.CreateAccessToken(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.codec.CreateRefreshToken(user.ID.String())
	if err != nil {
		return AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
