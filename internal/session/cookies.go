// Package session owns the auth cookie contract: names, lifetimes and
// attributes of the accessToken and refreshToken cookies.
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/auth"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	cookiePath = "/"
)

var (
	accessMaxAge  = int(auth.AccessTokenTTL.Seconds())
	refreshMaxAge = int(auth.RefreshTokenTTL.Seconds())
)

type Tokens struct {
	Access  string
	Refresh string
}

// SetTokens writes both cookies: HTTP-only, SameSite=Lax, path /, max-age
// equal to the token lifetimes. secure is on in production.
func SetTokens(c *gin.Context, tokens Tokens, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, tokens.Access, accessMaxAge, cookiePath, "", secure, true)
	c.SetCookie(RefreshCookie, tokens.Refresh, refreshMaxAge, cookiePath, "", secure, true)
}

// Clear expires both cookies on the response.
func Clear(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, cookiePath, "", secure, true)
	c.SetCookie(RefreshCookie, "", -1, cookiePath, "", secure, true)
}

// AccessToken returns the accessToken cookie value or "".
func AccessToken(c *gin.Context) string {
	v, err := c.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return v
}
