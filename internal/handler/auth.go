package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/auth"
	"portfolio_service/internal/middleware"
	"portfolio_service/internal/service"
	"portfolio_service/internal/session"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	res, err := h.serviceLayer.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.respondError(c, log, err)

		return
	}

	session.SetTokens(c, session.Tokens{Access: res.AccessToken, Refresh: res.RefreshToken}, h.settings.SecureCookies)

	log.Info("user registered", slog.String("user_id", res.User.ID.String()), slog.String("role", res.User.Role))

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    res.User,
	})
}

// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	res, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, log, err)

		return
	}

	session.SetTokens(c, session.Tokens{Access: res.AccessToken, Refresh: res.RefreshToken}, h.settings.SecureCookies)

	log.Info("user logged in", slog.String("user_id", res.User.ID.String()))

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    res.User,
	})
}

// POST /api/auth/logout always succeeds and clears both cookies.
func (h *Handler) Logout(c *gin.Context) {
	const op = "handler.Logout"

	log := h.log.With(slog.String("op", op), middleware.AuditAttrs(c.Request))

	// Logging only; the token is not trusted here.
	if token := session.AccessToken(c); token != "" {
		if claims, err := auth.DecodeUnsafe(token); err == nil {
			log = log.With(slog.String("user_id", claims.Subject))
		}
	}

	session.Clear(c, h.settings.SecureCookies)

	log.Info("user logout")

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	const op = "handler.Me"

	log := h.log.With(slog.String("op", op))

	id, ok := currentUserID(c)
	if !ok {
		log.Info("access token subject is not a user id")

		newErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")

		return
	}

	user, err := h.serviceLayer.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log.With(slog.String("user_id", id.String())), err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
