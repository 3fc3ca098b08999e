package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_service/internal/auth"
	"portfolio_service/internal/session"
)

const gateSecret = "gate-test-secret-0123456789abcdef0123"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateEngine(t *testing.T, verifier ClaimsVerifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewGate(verifier, DefaultRules(), false, discardLogger()).Handler())
	r.GET("/*any", func(c *gin.Context) {
		if claims, ok := GetClaims(c); ok {
			c.String(http.StatusOK, "page for "+claims.Subject)
			return
		}
		c.String(http.StatusOK, "page")
	})
	return r
}

func newEdge(t *testing.T) *auth.EdgeVerifier {
	t.Helper()
	v, err := auth.NewEdgeVerifier(gateSecret)
	require.NoError(t, err)
	return v
}

func newCodec(t *testing.T) *auth.Codec {
	t.Helper()
	c, err := auth.NewCodec(gateSecret)
	require.NoError(t, err)
	return c
}

func accessToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := newCodec(t).CreateAccessToken("user-1", "user@example.com", role)
	require.NoError(t, err)
	return tok
}

// expiredAccessToken is signed by a codec whose clock runs an hour behind.
func expiredAccessToken(t *testing.T) string {
	t.Helper()
	past, err := auth.NewCodec(gateSecret, auth.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	require.NoError(t, err)
	tok, err := past.Sign(auth.Claims{Subject: "user-1", Type: auth.TokenTypeAccess}, time.Minute)
	require.NoError(t, err)
	return tok
}

func assertCookiesCleared(t *testing.T, resp *http.Response) {
	t.Helper()
	found := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.Name == session.AccessCookie || c.Name == session.RefreshCookie {
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0)
			found[c.Name] = true
		}
	}
	assert.True(t, found[session.AccessCookie], "accessToken cleared")
	assert.True(t, found[session.RefreshCookie], "refreshToken cleared")
}

func TestGate_PublicAndBypassPassThrough(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	for _, path := range []string{"/", "/personal/about", "/login", "/api/upload/resume", "/static/app.js"} {
		apitest.New().
			Handler(r).
			Get(path).
			Expect(t).
			Status(http.StatusOK).
			Body("page").
			End()
	}
}

func TestGate_NoCookieRedirectsToLogin(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	apitest.New().
		Handler(r).
		Get("/dashboard").
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?from=%2Fdashboard").
		End()
}

func TestGate_DotSegmentsResolvedBeforeClassifying(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	tests := []struct {
		path     string
		location string
	}{
		{"/login/../family", "/login?from=%2Ffamily"},
		{"/static/../family/x.html", "/login?from=%2Ffamily%2Fx.html"},
		{"/api/../dashboard", "/login?from=%2Fdashboard"},
	}

	for _, tt := range tests {
		apitest.New(tt.path).
			Handler(r).
			Get(tt.path).
			Expect(t).
			Status(http.StatusTemporaryRedirect).
			Header("Location", tt.location).
			End()
	}
}

func TestGate_DotSegmentsStillRoleChecked(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	apitest.New().
		Handler(r).
		Get("/dashboard/../family").
		Cookie(session.AccessCookie, accessToken(t, "user")).
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?error=insufficient_permissions").
		End()
}

func TestGate_ExpiredTokenRedirectsAndClearsCookies(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	expired := expiredAccessToken(t)

	result := apitest.New().
		Handler(r).
		Get("/dashboard").
		Cookie(session.AccessCookie, expired).
		Cookie(session.RefreshCookie, "whatever").
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?from=%2Fdashboard").
		End()

	assertCookiesCleared(t, result.Response)
}

func TestGate_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	refresh, err := newCodec(t).CreateRefreshToken("user-1")
	require.NoError(t, err)

	result := apitest.New().
		Handler(r).
		Get("/dashboard").
		Cookie(session.AccessCookie, refresh).
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		End()

	assertCookiesCleared(t, result.Response)
}

func TestGate_ForgedTokenRedirects(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	other, err := auth.NewCodec(strings.Repeat("q", 40))
	require.NoError(t, err)
	forged, err := other.CreateAccessToken("user-1", "", "superuser")
	require.NoError(t, err)

	apitest.New().
		Handler(r).
		Get("/family/tree").
		Cookie(session.AccessCookie, forged).
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?from=%2Ffamily%2Ftree").
		End()
}

func TestGate_ValidTokenAllowed(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	apitest.New().
		Handler(r).
		Get("/dashboard").
		Cookie(session.AccessCookie, accessToken(t, "user")).
		Expect(t).
		Status(http.StatusOK).
		Body("page for user-1").
		End()
}

func TestGate_RoleGatedSubtree(t *testing.T) {
	r := newGateEngine(t, newEdge(t))

	apitest.New().
		Handler(r).
		Get("/family/tree").
		Cookie(session.AccessCookie, accessToken(t, "user")).
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?error=insufficient_permissions").
		End()

	for _, role := range []string{"superuser", "admin"} {
		apitest.New().
			Handler(r).
			Get("/family/tree").
			Cookie(session.AccessCookie, accessToken(t, role)).
			Expect(t).
			Status(http.StatusOK).
			End()
	}
}

func TestGate_MissingVerifierFailsClosed(t *testing.T) {
	r := newGateEngine(t, nil)

	apitest.New().
		Handler(r).
		Get("/dashboard").
		Cookie(session.AccessCookie, accessToken(t, "superuser")).
		Expect(t).
		Status(http.StatusTemporaryRedirect).
		Header("Location", "/login?error=server_error").
		End()

	apitest.New().
		Handler(r).
		Get("/").
		Expect(t).
		Status(http.StatusOK).
		End()
}
