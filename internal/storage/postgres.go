package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"portfolio_service/internal/common"
	"portfolio_service/internal/models"
	"portfolio_service/internal/storage/migrations"
)

const (
	usersTable = "users"
	filesTable = "files"

	uniqueViolation = "23505"
)

const (
	userColumns = "id, email, name, password_hash, user_role, created_at, last_login_at"
	fileColumns = "id, user_id, kind, file_name, content_type, size, stored_location, encryption_iv, auth_tag, uploaded_at, retention_until"
)

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations over a database/sql handle
// that shares the pool's connection settings.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	const op = "storage.Migrate"

	db := stdlib.OpenDB(*p.db.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *PostgresStorage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"

	query := fmt.Sprintf(`INSERT INTO %s(id, email, name, password_hash, user_role, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`, usersTable)

	_, err := p.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return user, nil
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "storage.GetUserByID"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1;", userColumns, usersTable)

	user, err := scanUser(p.db.QueryRow(ctx, query, userID))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return user, nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE email=$1;", userColumns, usersTable)

	user, err := scanUser(p.db.QueryRow(ctx, query, email))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return user, nil
}

func (p *PostgresStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at;", userColumns, usersTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return users, nil
}

func (p *PostgresStorage) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	const op = "storage.UpdateLastLogin"

	query := fmt.Sprintf("UPDATE %s SET last_login_at=$1 WHERE id=$2", usersTable)

	tag, err := p.db.Exec(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}

	return nil
}

func (p *PostgresStorage) CreateFile(ctx context.Context, file models.File) error {
	const op = "storage.CreateFile"

	query := fmt.Sprintf(`INSERT INTO %s(%s)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, filesTable, fileColumns)

	_, err := p.db.Exec(ctx, query,
		file.ID,
		file.UserID,
		string(file.Kind),
		file.FileName,
		file.ContentType,
		file.Size,
		file.StoredLocation,
		file.EncryptionIV,
		file.AuthTag,
		file.UploadedAt,
		file.RetentionUntil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

func (p *PostgresStorage) GetFile(ctx context.Context, fileID uuid.UUID) (models.File, error) {
	const op = "storage.GetFile"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1;", fileColumns, filesTable)

	file, err := scanFile(p.db.QueryRow(ctx, query, fileID))
	if err != nil {
		return models.File{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return file, nil
}

func (p *PostgresStorage) ListFiles(ctx context.Context, userID uuid.UUID, kind models.FileKind) ([]models.File, error) {
	const op = "storage.ListFiles"

	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE user_id=$1 AND kind=$2
	ORDER BY uploaded_at DESC;`, fileColumns, filesTable)

	return p.queryFiles(ctx, op, query, userID, string(kind))
}

func (p *PostgresStorage) ListExpiredFiles(ctx context.Context, now time.Time, offset, limit int) ([]models.File, error) {
	const op = "storage.ListExpiredFiles"

	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE retention_until <= $1
	ORDER BY retention_until, id
	OFFSET $2 LIMIT $3;`, fileColumns, filesTable)

	return p.queryFiles(ctx, op, query, now, offset, limit)
}

func (p *PostgresStorage) DeleteFile(ctx context.Context, fileID uuid.UUID) error {
	const op = "storage.DeleteFile"

	query := fmt.Sprintf("DELETE FROM %s WHERE id=$1", filesTable)

	tag, err := p.db.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}

func (p *PostgresStorage) queryFiles(ctx context.Context, op, query string, args ...any) ([]models.File, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return files, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	return user, err
}

func scanFile(row pgx.Row) (models.File, error) {
	var (
		file models.File
		kind string
	)
	err := row.Scan(
		&file.ID,
		&file.UserID,
		&kind,
		&file.FileName,
		&file.ContentType,
		&file.Size,
		&file.StoredLocation,
		&file.EncryptionIV,
		&file.AuthTag,
		&file.UploadedAt,
		&file.RetentionUntil,
	)
	file.Kind = models.FileKind(kind)
	return file, err
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrAlreadyExists
	}

	return err
}
