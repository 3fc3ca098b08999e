package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/admin/users
func (h *Handler) GetAllUsers(c *gin.Context) {
	const op = "handler.GetAllUsers"

	log := h.log.With(slog.String("op", op))

	users, err := h.serviceLayer.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
