package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"portfolio_service/internal/middleware"
	"portfolio_service/internal/models"
	"portfolio_service/internal/service"
)

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// Upload handles POST /api/upload/{resume,photo}. The file is expected in the
// form field named after the kind.
func (h *Handler) Upload(kind models.FileKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "handler.Upload"

		log := h.log.With(slog.String("op", op), slog.String("kind", string(kind)), middleware.AuditAttrs(c.Request))

		userID, ok := currentUserID(c)
		if !ok {
			newErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")

			return
		}

		maxSize := service.MaxUploadSize(kind)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

		header, err := c.FormFile(string(kind))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.respondError(c, log, fmt.Errorf("%s: %w", op, service.ErrFileTooLarge))

				return
			}
			h.respondError(c, log, fmt.Errorf("%s: %w: %v", op, service.ErrEmptyFile, err))

			return
		}

		if header.Size > maxSize {
			h.respondError(c, log, service.ErrFileTooLarge)

			return
		}

		f, err := header.Open()
		if err != nil {
			h.respondError(c, log, fmt.Errorf("%s: %w", op, err))

			return
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
		if err != nil {
			h.respondError(c, log, fmt.Errorf("%s: %w", op, err))

			return
		}

		file, err := h.serviceLayer.Upload(c.Request.Context(), service.UploadInput{
			UserID:      userID,
			Kind:        kind,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			h.respondError(c, log, err)

			return
		}

		log.Info("file uploaded",
			slog.String("user_id", userID.String()),
			slog.String("file_id", file.ID.String()),
			slog.Int64("size", file.Size),
		)

		c.JSON(http.StatusCreated, gin.H{
			"message": uploadMessage(kind),
			"file":    file,
		})
	}
}

// ListFiles handles GET /api/upload/{resume,photo}.
func (h *Handler) ListFiles(kind models.FileKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "handler.ListFiles"

		log := h.log.With(slog.String("op", op), slog.String("kind", string(kind)))

		userID, ok := currentUserID(c)
		if !ok {
			newErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")

			return
		}

		files, err := h.serviceLayer.ListFiles(c.Request.Context(), userID, kind)
		if err != nil {
			h.respondError(c, log, err)

			return
		}

		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

// GET /api/upload/{resume,photo}/:id streams the decrypted file of the caller.
func (h *Handler) Download(c *gin.Context) {
	const op = "handler.Download"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	userID, ok := currentUserID(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")

		return
	}

	fileID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		newErrorResponse(c, http.StatusNotFound, "Not found")

		return
	}

	file, data, err := h.serviceLayer.OpenFile(c.Request.Context(), userID, fileID)
	if err != nil {
		h.respondError(c, log.With(slog.String("file_id", fileID.String())), err)

		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	c.Data(http.StatusOK, file.ContentType, data)
}

// DELETE /api/upload/{resume,photo}/:id removes a file of the caller. The id
// may also come as the id query parameter.
func (h *Handler) DeleteFile(c *gin.Context) {
	const op = "handler.DeleteFile"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	userID, ok := currentUserID(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")

		return
	}

	rawID := c.Param("id")
	if rawID == "" {
		rawID = c.Query("id")
	}
	if rawID == "" {
		newErrorResponse(c, http.StatusBadRequest, "File ID is required")

		return
	}

	fileID, err := uuid.FromString(rawID)
	if err != nil {
		newErrorResponse(c, http.StatusNotFound, "Not found")

		return
	}

	if err := h.serviceLayer.DeleteFile(c.Request.Context(), userID, fileID); err != nil {
		h.respondError(c, log.With(slog.String("file_id", rawID)), err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted successfully",
		"fileId":  fileID.String(),
	})
}

func uploadMessage(kind models.FileKind) string {
	name := string(kind)
	return strings.ToUpper(name[:1]) + name[1:] + " uploaded successfully"
}
