package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRules_Classify(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()

	tests := []struct {
		path string
		want RouteClass
	}{
		{"/", RoutePublic},
		{"/personal", RoutePublic},
		{"/personal/about", RoutePublic},
		{"/login", RoutePublic},
		{"/contact", RoutePublic},
		{"/portfolio/u1/r1/home", RoutePublic},
		{"/family", RouteProtected},
		{"/family/tree", RouteProtected},
		{"/family/father/gallery", RouteProtected},
		{"/dashboard", RouteProtected},
		{"/familyfoo", RouteProtected}, // unclassified, default deny
		{"/unknown", RouteProtected},
		{"/api/auth/login", RouteBypass},
		{"/api", RouteBypass},
		{"/static/app.css", RouteBypass},
		{"/favicon.ico", RouteBypass},
		{"/robots.txt", RouteBypass},
		{"/family/photo.jpg", RouteProtected},
		{"/login/../family", RouteProtected},
		{"/static/../family/x.html", RouteProtected},
		{"/api/../dashboard", RouteProtected},
		{"//family", RouteProtected},
		{"/family/../login", RoutePublic},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Classify(tt.path), tt.path)
	}
}

func TestRules_DefaultAllow(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.DefaultDeny = false

	assert.Equal(t, RoutePublic, rules.Classify("/unknown"))
	assert.Equal(t, RouteProtected, rules.Classify("/dashboard/settings"))
}

func TestRules_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	rules := Rules{
		Public:    []string{"/portfolio", "/shared"},
		Protected: []string{"/portfolio/drafts/", "/shared"},
	}

	assert.Equal(t, RoutePublic, rules.Classify("/portfolio/u1"))
	assert.Equal(t, RouteProtected, rules.Classify("/portfolio/drafts"))
	assert.Equal(t, RouteProtected, rules.Classify("/portfolio/drafts/1"))
	assert.Equal(t, RouteProtected, rules.Classify("/shared/x"), "tie goes to protected")
}

func TestRules_RoleGatedPrefixIsProtected(t *testing.T) {
	t.Parallel()

	rules := Rules{
		Public:    []string{"/", "/family"},
		RoleGated: []RoleRule{{Prefix: "/family/private", Roles: []string{"superuser"}}},
	}

	assert.Equal(t, RoutePublic, rules.Classify("/family/album"))
	assert.Equal(t, RouteProtected, rules.Classify("/family/private"))
	assert.Equal(t, RouteProtected, rules.Classify("/family/private/photo.jpg"))
}

func TestRules_RequiredRoles(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()

	assert.ElementsMatch(t, []string{"superuser", "admin"}, rules.RequiredRoles("/family/tree"))
	assert.Nil(t, rules.RequiredRoles("/dashboard"))
	assert.Nil(t, rules.RequiredRoles("/familyfoo"))
	assert.ElementsMatch(t, []string{"superuser", "admin"}, rules.RequiredRoles("/dashboard/../family"))
}

func TestRouteClass_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bypass", RouteBypass.String())
	assert.Equal(t, "public", RoutePublic.String())
	assert.Equal(t, "protected", RouteProtected.String())
}
