package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_service/internal/blobstore"
	"portfolio_service/internal/common"
	"portfolio_service/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyBlobs wraps a real store and fails deletes of selected keys.
type flakyBlobs struct {
	blobstore.Store
	failDelete map[string]bool
}

func (b *flakyBlobs) Delete(ctx context.Context, key string) error {
	if b.failDelete[key] {
		return errBlobDown
	}
	return b.Store.Delete(ctx, key)
}

func resumeInput(userID uuid.UUID, data []byte) UploadInput {
	return UploadInput{
		UserID:      userID,
		Kind:        models.FileKindResume,
		FileName:    "CV.PDF",
		ContentType: "application/pdf",
		Data:        data,
	}
}

func TestUpload_RoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithRetentionDays(7))
	ctx := context.Background()
	owner := f.register(t, "owner@example.com").User

	content := bytes.Repeat([]byte("resume line\n"), 1000)
	file, err := f.svc.Upload(ctx, resumeInput(owner.ID, content))
	require.NoError(t, err)

	assert.Equal(t, owner.ID, file.UserID)
	assert.Equal(t, "CV.PDF", file.FileName)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.Equal(t, "users/"+owner.ID.String()+"/files/resume_"+file.ID.String()+".pdf.enc", file.StoredLocation)
	assert.Len(t, file.EncryptionIV, 32)
	assert.Len(t, file.AuthTag, 32)
	assert.True(t, file.RetentionUntil.Equal(f.clock().Add(7*24*time.Hour)))

	stored, err := f.blobs.Get(ctx, file.StoredLocation)
	require.NoError(t, err)
	assert.NotEqual(t, content, stored, "blob is not plaintext")
	assert.False(t, bytes.Contains(stored, []byte("resume line")))

	got, plaintext, err := f.svc.OpenFile(ctx, owner.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
	assert.Equal(t, content, plaintext)

	files, err := f.svc.ListFiles(ctx, owner.ID, models.FileKindResume)
	require.NoError(t, err)
	require.Len(t, files, 1)

	photos, err := f.svc.ListFiles(ctx, owner.ID, models.FileKindPhoto)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestUpload_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.register(t, "v@example.com").User
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"unknown kind", UploadInput{UserID: owner.ID, Kind: "video", ContentType: "video/mp4", Data: []byte("x")}, ErrUnknownFileKind},
		{"empty", resumeInput(owner.ID, nil), ErrEmptyFile},
		{"wrong type for resume", UploadInput{UserID: owner.ID, Kind: models.FileKindResume, ContentType: "image/png", Data: []byte("x")}, ErrFileType},
		{"wrong type for photo", UploadInput{UserID: owner.ID, Kind: models.FileKindPhoto, ContentType: "application/pdf", Data: []byte("x")}, ErrFileType},
		{"resume too large", resumeInput(owner.ID, make([]byte, MaxResumeSize+1)), ErrFileTooLarge},
		{"photo too large", UploadInput{UserID: owner.ID, Kind: models.FileKindPhoto, ContentType: "image/jpeg", Data: make([]byte, MaxPhotoSize+1)}, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestUpload_PhotoNaming(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := f.register(t, "p@example.com").User

	file, err := f.svc.Upload(context.Background(), UploadInput{
		UserID:      owner.ID,
		Kind:        models.FileKindPhoto,
		FileName:    `C:\Users\me\portrait`,
		ContentType: "image/png; charset=binary",
		Data:        []byte{0x89, 'P', 'N', 'G'},
	})
	require.NoError(t, err)

	assert.Equal(t, "portrait", file.FileName)
	assert.Equal(t, "image/png", file.ContentType)
	assert.True(t, strings.HasSuffix(file.StoredLocation, ".png.enc"), file.StoredLocation)
}

func TestUpload_UnknownOwnerLeavesNoBlob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), resumeInput(uuid.Must(uuid.NewV4()), []byte("x")))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOpenFile_OtherUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "o1@example.com").User
	other := f.register(t, "o2@example.com").User

	file, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("private")))
	require.NoError(t, err)

	_, _, err = f.svc.OpenFile(ctx, other.ID, file.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, _, err = f.svc.OpenFile(ctx, owner.ID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOpenFile_TamperedBlob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "t@example.com").User

	file, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("do not change me")))
	require.NoError(t, err)

	stored, err := f.blobs.Get(ctx, file.StoredLocation)
	require.NoError(t, err)
	stored[0] ^= 0x01
	require.NoError(t, f.blobs.Put(ctx, file.StoredLocation, stored))

	_, plaintext, err := f.svc.OpenFile(ctx, owner.ID, file.ID)
	assert.ErrorIs(t, err, common.ErrIntegrity)
	assert.Nil(t, plaintext)
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithRetentionDays(1))
	ctx := context.Background()
	owner := f.register(t, "r@example.com").User

	old, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("old")))
	require.NoError(t, err)

	f.advance(12 * time.Hour)
	fresh, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("fresh")))
	require.NoError(t, err)

	n, failed, err := f.svc.PurgeExpired(ctx, 0, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, failed)

	f.advance(13 * time.Hour)
	n, failed, err = f.svc.PurgeExpired(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, failed)

	_, err = f.blobs.Get(ctx, old.StoredLocation)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, _, err = f.svc.OpenFile(ctx, owner.ID, old.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, _, err = f.svc.OpenFile(ctx, owner.ID, fresh.ID)
	assert.NoError(t, err)
}

func TestPurgeExpired_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	local, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	blobs := &flakyBlobs{Store: local, failDelete: map[string]bool{}}

	f := newFixtureWithBlobs(t, blobs, WithRetentionDays(1))
	ctx := context.Background()
	owner := f.register(t, "q@example.com").User

	first, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("a")))
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, resumeInput(owner.ID, []byte("b")))
	require.NoError(t, err)

	blobs.failDelete[first.StoredLocation] = true
	f.advance(48 * time.Hour)

	n, failed, err := f.svc.PurgeExpired(ctx, 0, 100)
	assert.ErrorIs(t, err, errBlobDown)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, failed)

	_, err = f.st.GetFile(ctx, first.ID)
	assert.NoError(t, err, "row stays until its blob is gone")

	n, failed, err = f.svc.PurgeExpired(ctx, 1, 100)
	require.NoError(t, err)
	assert.Zero(t, n, "offset skips the file that failed")
	assert.Zero(t, failed)

	delete(blobs.failDelete, first.StoredLocation)
	n, failed, err = f.svc.PurgeExpired(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, failed)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "del-owner@example.com").User
	other := f.register(t, "del-other@example.com").User

	file, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("to be deleted")))
	require.NoError(t, err)

	err = f.svc.DeleteFile(ctx, other.ID, file.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "foreign files look missing")
	_, err = f.blobs.Get(ctx, file.StoredLocation)
	require.NoError(t, err, "foreign delete leaves the blob alone")

	require.NoError(t, f.svc.DeleteFile(ctx, owner.ID, file.ID))

	_, err = f.blobs.Get(ctx, file.StoredLocation)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.st.GetFile(ctx, file.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteFile(ctx, owner.ID, file.ID), common.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteFile(ctx, owner.ID, uuid.Must(uuid.NewV4())), common.ErrNotFound)
}

func TestDeleteFile_KeepsRowWhenBlobDeleteFails(t *testing.T) {
	t.Parallel()

	local, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	blobs := &flakyBlobs{Store: local, failDelete: map[string]bool{}}

	f := newFixtureWithBlobs(t, blobs)
	ctx := context.Background()
	owner := f.register(t, "del-flaky@example.com").User

	file, err := f.svc.Upload(ctx, resumeInput(owner.ID, []byte("sticky")))
	require.NoError(t, err)

	blobs.failDelete[file.StoredLocation] = true
	assert.ErrorIs(t, f.svc.DeleteFile(ctx, owner.ID, file.ID), errBlobDown)

	_, err = f.st.GetFile(ctx, file.ID)
	assert.NoError(t, err)
}

func TestMaxUploadSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(MaxResumeSize), MaxUploadSize(models.FileKindResume))
	assert.Equal(t, int64(MaxPhotoSize), MaxUploadSize(models.FileKindPhoto))
	assert.Zero(t, MaxUploadSize("video"))
}
