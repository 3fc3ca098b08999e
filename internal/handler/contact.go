package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/middleware"
	"portfolio_service/internal/service"
)

type contactRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Subject           string `json:"subject"`
	Message           string `json:"message"`
	PortfolioUserID   string `json:"portfolioUserId"`
	PortfolioResumeID string `json:"portfolioResumeId"`
}

// POST /api/contact is open to visitors.
func (h *Handler) Contact(c *gin.Context) {
	const op = "handler.Contact"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	err := h.serviceLayer.SubmitContact(c.Request.Context(), service.ContactInput{
		Name:              req.Name,
		Email:             req.Email,
		Subject:           req.Subject,
		Message:           req.Message,
		PortfolioUserID:   req.PortfolioUserID,
		PortfolioResumeID: req.PortfolioResumeID,
		ClientIP:          middleware.ClientIP(c.Request),
	})
	if err != nil {
		h.respondError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message received successfully",
	})
}
