package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/auth"
	"portfolio_service/internal/session"
)

const (
	ClaimsKey = "claims"

	loginPath            = "/login"
	serverErrorURL       = loginPath + "?error=server_error"
	insufficientPermsURL = loginPath + "?error=insufficient_permissions"
)

// ClaimsVerifier is satisfied by auth.EdgeVerifier.
type ClaimsVerifier interface {
	AccessClaims(token string) (*auth.Claims, error)
}

// Gate guards page routes. It never touches storage: the role comes from the
// verified access token.
type Gate struct {
	verifier      ClaimsVerifier
	rules         Rules
	secureCookies bool
	log           *slog.Logger
}

// NewGate builds the gate. A nil verifier means no signing secret is
// configured; protected routes then fail closed to the error page.
func NewGate(verifier ClaimsVerifier, rules Rules, secureCookies bool, log *slog.Logger) *Gate {
	return &Gate{
		verifier:      verifier,
		rules:         rules,
		secureCookies: secureCookies,
		log:           log,
	}
}

func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "middleware.Gate"

		path := cleanPath(c.Request.URL.Path)
		if g.rules.Classify(path) != RouteProtected {
			c.Next()
			return
		}

		log := g.log.With(slog.String("op", op), slog.String("path", path))

		token := session.AccessToken(c)
		if token == "" {
			redirect(c, loginURL(path))
			return
		}

		if g.verifier == nil {
			log.Error("token verifier is not configured")
			redirect(c, serverErrorURL)
			return
		}

		claims, err := g.verifier.AccessClaims(token)
		if err != nil {
			log.Debug("rejected access token", slog.Any("error", err))
			session.Clear(c, g.secureCookies)
			redirect(c, loginURL(path))
			return
		}

		if roles := g.rules.RequiredRoles(path); roles != nil && !slices.Contains(roles, claims.Role) {
			log.Info("insufficient role", slog.String("user_id", claims.Subject), slog.String("role", claims.Role))
			redirect(c, insufficientPermsURL)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the claims the gate or RequireAuth attached to c.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func loginURL(from string) string {
	return loginPath + "?" + url.Values{"from": {from}}.Encode()
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusTemporaryRedirect, location)
	c.Abort()
}
