package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"portfolio_service/internal/common"
	"portfolio_service/internal/models"
)

// MemoryStorage keeps everything in process memory. It backs local runs and
// tests; data is gone on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
	files   map[uuid.UUID]models.File
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:   make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
		files:   make(map[uuid.UUID]models.File),
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := m.byEmail[key]; ok {
		return models.User{}, fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
	}
	if _, ok := m.users[user.ID]; ok {
		return models.User{}, fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
	}

	m.users[user.ID] = user
	m.byEmail[key] = user.ID

	return user, nil
}

func (m *MemoryStorage) GetUserByID(_ context.Context, userID uuid.UUID) (models.User, error) {
	const op = "storage.GetUserByID"

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return user, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return m.users[id], nil
}

func (m *MemoryStorage) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

func (m *MemoryStorage) UpdateLastLogin(_ context.Context, userID uuid.UUID, at time.Time) error {
	const op = "storage.UpdateLastLogin"

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	user.LastLoginAt = &at
	m.users[userID] = user

	return nil
}

func (m *MemoryStorage) CreateFile(_ context.Context, file models.File) error {
	const op = "storage.CreateFile"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[file.UserID]; !ok {
		return fmt.Errorf("%s: owner: %w", op, common.ErrNotFound)
	}
	if _, ok := m.files[file.ID]; ok {
		return fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
	}
	m.files[file.ID] = file

	return nil
}

func (m *MemoryStorage) GetFile(_ context.Context, fileID uuid.UUID) (models.File, error) {
	const op = "storage.GetFile"

	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[fileID]
	if !ok {
		return models.File{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return file, nil
}

func (m *MemoryStorage) ListFiles(_ context.Context, userID uuid.UUID, kind models.FileKind) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := []models.File{}
	for _, f := range m.files {
		if f.UserID == userID && f.Kind == kind {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})

	return files, nil
}

func (m *MemoryStorage) ListExpiredFiles(_ context.Context, now time.Time, offset, limit int) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := []models.File{}
	for _, f := range m.files {
		if !f.RetentionUntil.After(now) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].RetentionUntil.Equal(files[j].RetentionUntil) {
			return files[i].RetentionUntil.Before(files[j].RetentionUntil)
		}
		return files[i].ID.String() < files[j].ID.String()
	})
	if offset >= len(files) {
		return []models.File{}, nil
	}
	files = files[max(offset, 0):]
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	return files, nil
}

func (m *MemoryStorage) DeleteFile(_ context.Context, fileID uuid.UUID) error {
	const op = "storage.DeleteFile"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fileID]; !ok {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	delete(m.files, fileID)

	return nil
}

func (m *MemoryStorage) Close() {}
