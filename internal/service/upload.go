package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/gofrs/uuid"

	"portfolio_service/internal/common"
	"portfolio_service/internal/cryptox"
	"portfolio_service/internal/models"
)

const (
	MaxResumeSize = 10 << 20
	MaxPhotoSize  = 5 << 20
)

var (
	ErrEmptyFile       = fmt.Errorf("%w: no file uploaded", common.ErrValidation)
	ErrUnknownFileKind = fmt.Errorf("%w: unknown file kind", common.ErrValidation)
	ErrFileType        = fmt.Errorf("%w: file type not allowed", common.ErrValidation)
	ErrFileTooLarge    = fmt.Errorf("%w: file too large", common.ErrValidation)
)

var extRegexp = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// uploadPolicy maps allowed content types to the extension used when the
// client file name has none.
type uploadPolicy struct {
	maxSize int64
	types   map[string]string
}

var policies = map[models.FileKind]uploadPolicy{
	models.FileKindResume: {
		maxSize: MaxResumeSize,
		types: map[string]string{
			"application/pdf": "pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
			"text/plain":    "txt",
			"text/markdown": "md",
		},
	},
	models.FileKindPhoto: {
		maxSize: MaxPhotoSize,
		types: map[string]string{
			"image/jpeg": "jpg",
			"image/png":  "png",
			"image/webp": "webp",
		},
	},
}

// MaxUploadSize returns the size limit for kind, or 0 if kind is unknown.
func MaxUploadSize(kind models.FileKind) int64 {
	return policies[kind].maxSize
}

type UploadInput struct {
	UserID      uuid.UUID
	Kind        models.FileKind
	FileName    string
	ContentType string
	Data        []byte
}

// Upload encrypts the content, writes the ciphertext to the blob store and
// records the IV and tag with the file row.
func (s *service) Upload(ctx context.Context, in UploadInput) (models.File, error) {
	const op = "service.Upload"

	policy, ok := policies[in.Kind]
	if !ok {
		return models.File{}, ErrUnknownFileKind
	}
	if len(in.Data) == 0 {
		return models.File{}, ErrEmptyFile
	}

	contentType := normalizeContentType(in.ContentType)
	defaultExt, ok := policy.types[contentType]
	if !ok {
		return models.File{}, ErrFileType
	}
	if int64(len(in.Data)) > policy.maxSize {
		return models.File{}, ErrFileTooLarge
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.File{}, fmt.Errorf("%s: %w", op, err)
	}

	blob, err := s.encryptor.Encrypt(in.Data)
	if err != nil {
		return models.File{}, fmt.Errorf("%s: %w", op, err)
	}

	key := blobKey(in.UserID, in.Kind, id, fileExt(in.FileName, defaultExt))
	if err := s.blobs.Put(ctx, key, blob.Ciphertext); err != nil {
		return models.File{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	file := models.File{
		ID:             id,
		UserID:         in.UserID,
		Kind:           in.Kind,
		FileName:       baseName(in.FileName, in.Kind, defaultExt),
		ContentType:    contentType,
		Size:           int64(len(in.Data)),
		StoredLocation: key,
		EncryptionIV:   hex.EncodeToString(blob.IV),
		AuthTag:        hex.EncodeToString(blob.AuthTag),
		UploadedAt:     now,
		RetentionUntil: now.Add(s.retention),
	}

	if err := s.storage.CreateFile(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphaned blob",
				slog.String("op", op),
				slog.String("key", key),
				slog.Any("error", delErr),
			)
		}
		return models.File{}, fmt.Errorf("%s: %w", op, err)
	}

	return file, nil
}

func (s *service) ListFiles(ctx context.Context, userID uuid.UUID, kind models.FileKind) ([]models.File, error) {
	const op = "service.ListFiles"

	if _, ok := policies[kind]; !ok {
		return nil, ErrUnknownFileKind
	}

	files, err := s.storage.ListFiles(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return files, nil
}

// OpenFile returns the decrypted content of one of userID's files. Files of
// other users are reported as not found.
func (s *service) OpenFile(ctx context.Context, userID, fileID uuid.UUID) (models.File, []byte, error) {
	const op = "service.OpenFile"

	file, err := s.storage.GetFile(ctx, fileID)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if file.UserID != userID {
		return models.File{}, nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}

	ciphertext, err := s.blobs.Get(ctx, file.StoredLocation)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	blob, err := storedBlob(ciphertext, file)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	plaintext, err := s.encryptor.Decrypt(blob)
	if err != nil {
		return models.File{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	return file, plaintext, nil
}

// PurgeExpired deletes up to limit files whose retention period is over, blob
// first, then the row, skipping the first offset expired files. It keeps going
// past individual failures; failed files keep their rows and count in failed.
func (s *service) PurgeExpired(ctx context.Context, offset, limit int) (purged, failed int, err error) {
	const op = "service.PurgeExpired"

	log := s.log.With(slog.String("op", op))

	files, err := s.storage.ListExpiredFiles(ctx, s.now().UTC(), offset, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	var errs []error
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.StoredLocation); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.storage.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			errs = append(errs, err)
			continue
		}

		purged++
		log.Info("file purged",
			slog.String("file_id", f.ID.String()),
			slog.String("kind", string(f.Kind)),
			slog.Time("retention_until", f.RetentionUntil),
		)
	}

	if err := errors.Join(errs...); err != nil {
		return purged, len(errs), fmt.Errorf("%s: %w", op, err)
	}
	return purged, 0, nil
}

// DeleteFile removes one of userID's files, blob first, then the row. Files
// of other users are reported as not found.
func (s *service) DeleteFile(ctx context.Context, userID, fileID uuid.UUID) error {
	const op = "service.DeleteFile"

	file, err := s.storage.GetFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if file.UserID != userID {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}

	if err := s.blobs.Delete(ctx, file.StoredLocation); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("file deleted",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("file_id", fileID.String()),
		slog.String("kind", string(file.Kind)),
	)

	return nil
}

func storedBlob(ciphertext []byte, file models.File) (cryptox.EncryptedBlob, error) {
	iv, err := hex.DecodeString(file.EncryptionIV)
	if err != nil {
		return cryptox.EncryptedBlob{}, fmt.Errorf("%w: stored iv", common.ErrIntegrity)
	}

	tag, err := hex.DecodeString(file.AuthTag)
	if err != nil {
		return cryptox.EncryptedBlob{}, fmt.Errorf("%w: stored auth tag", common.ErrIntegrity)
	}

	return cryptox.EncryptedBlob{Ciphertext: ciphertext, IV: iv, AuthTag: tag}, nil
}

func blobKey(userID uuid.UUID, kind models.FileKind, fileID uuid.UUID, ext string) string {
	return fmt.Sprintf("users/%s/files/%s_%s.%s.enc", userID, kind, fileID, ext)
}

func fileExt(name, fallback string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if !extRegexp.MatchString(ext) {
		return fallback
	}
	return ext
}

// baseName strips any client supplied directories from name.
func baseName(name string, kind models.FileKind, fallbackExt string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return string(kind) + "." + fallbackExt
	}
	return base
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
