package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"portfolio_service/internal/common"
	"portfolio_service/internal/middleware"
	"portfolio_service/internal/models"
	"portfolio_service/internal/service"
)

// Settings wire the handler to the rest of the process.
type Settings struct {
	// APIVerifier checks access tokens on API routes, normally *auth.Codec.
	APIVerifier middleware.ClaimsVerifier
	// Gate guards page routes. Nil disables page protection.
	Gate          *middleware.Gate
	SecureCookies bool
	// StaticDir holds the rendered pages served for non-API paths.
	StaticDir string
}

type Handler struct {
	serviceLayer service.Service
	settings     Settings
	log          *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Error: errMessage})
}

func NewHandler(srvc service.Service, settings Settings, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		settings:     settings,
		log:          lgr,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(h.log))

	if h.settings.Gate != nil {
		router.Use(h.settings.Gate.Handler())
	}

	requireAuth := middleware.RequireAuth(h.settings.APIVerifier, h.log)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", requireAuth, h.Me)
	}

	api.POST("/contact", h.Contact)

	upload := api.Group("/upload", requireAuth)
	for _, kind := range []models.FileKind{models.FileKindResume, models.FileKindPhoto} {
		upload.POST("/"+string(kind), h.Upload(kind))
		upload.GET("/"+string(kind), h.ListFiles(kind))
		upload.GET("/"+string(kind)+"/:id", h.Download)
		upload.DELETE("/"+string(kind), h.DeleteFile)
		upload.DELETE("/"+string(kind)+"/:id", h.DeleteFile)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireRole(models.RoleSuperuser, models.RoleAdmin))
	{
		admin.GET("/users", h.GetAllUsers)
	}

	router.NoRoute(h.Page)

	return router
}

// publicMessages are the only error texts that reach clients verbatim.
var publicMessages = []struct {
	err error
	msg string
}{
	{service.ErrMissingCredentials, "Email and password are required"},
	{service.ErrInvalidEmail, "Invalid email format"},
	{service.ErrWeakPassword, "Password must be at least 12 characters and contain uppercase, lowercase, number, and special character"},
	{service.ErrUserExists, "User already exists"},
	{service.ErrInvalidCredentials, "Invalid credentials"},
	{service.ErrEmptyFile, "No file uploaded"},
	{service.ErrFileType, "Invalid file type"},
	{service.ErrFileTooLarge, "File too large"},
	{service.ErrUnknownFileKind, "Unknown file kind"},
	{service.ErrMissingContactFields, "Missing required fields: name, email, subject, message"},
	{service.ErrContactMessageLength, "Message must be between 10 and 5000 characters"},
}

// respondError maps err onto a status code and a client safe message. The
// full error is only logged.
func (h *Handler) respondError(c *gin.Context, log *slog.Logger, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, common.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, common.ErrForbidden):
		status, msg = http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrAlreadyExists):
		status, msg = http.StatusConflict, "Already exists"
	}

	for _, pm := range publicMessages {
		if errors.Is(err, pm.err) {
			msg = pm.msg
			break
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Any("error", err))
	} else {
		log.Info("request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	newErrorResponse(c, status, msg)
}

// currentUserID reads the subject of the verified access token.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
