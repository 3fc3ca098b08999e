package middleware

import (
	"path"
	"strings"

	"portfolio_service/internal/models"
)

type RouteClass int

const (
	// RouteBypass is never inspected by the gate: API routes and static assets.
	RouteBypass RouteClass = iota
	RoutePublic
	RouteProtected
)

func (c RouteClass) String() string {
	switch c {
	case RouteBypass:
		return "bypass"
	case RoutePublic:
		return "public"
	case RouteProtected:
		return "protected"
	}
	return "unknown"
}

// RoleRule restricts a protected sub-tree to a set of roles.
type RoleRule struct {
	Prefix string
	Roles  []string
}

// Rules classify page paths. "/" matches only the root; every other entry
// matches itself and anything below it. A RoleGated prefix is protected even
// when Protected does not list it. DefaultDeny decides what happens to paths
// that match nothing.
type Rules struct {
	Public      []string
	Protected   []string
	RoleGated   []RoleRule
	DefaultDeny bool
}

func DefaultRules() Rules {
	return Rules{
		Public:    []string{"/", "/personal", "/login", "/register", "/contact", "/about", "/portfolio"},
		Protected: []string{"/family", "/dashboard"},
		RoleGated: []RoleRule{
			{Prefix: "/family", Roles: []string{models.RoleSuperuser, models.RoleAdmin}},
		},
		DefaultDeny: true,
	}
}

// Classify picks the longest matching prefix; a tie between the public and
// protected lists goes to protected. Asset paths are only bypassed when no
// protected prefix covers them.
func (r Rules) Classify(path string) RouteClass {
	path = cleanPath(path)
	if isAPI(path) {
		return RouteBypass
	}

	pub := longestMatch(r.Public, path)
	prot := max(longestMatch(r.Protected, path), r.longestRoleGate(path))

	switch {
	case prot > 0 && prot >= pub:
		return RouteProtected
	case pub > 0:
		return RoutePublic
	case isAsset(path):
		return RouteBypass
	case r.DefaultDeny:
		return RouteProtected
	}
	return RoutePublic
}

// RequiredRoles returns the roles allowed on path, or nil if any
// authenticated user may access it.
func (r Rules) RequiredRoles(path string) []string {
	path = cleanPath(path)
	best := 0
	var roles []string
	for _, rule := range r.RoleGated {
		if n := matchLen(rule.Prefix, path); n > best {
			best, roles = n, rule.Roles
		}
	}
	return roles
}

// cleanPath resolves dot segments and duplicate slashes, so a path is judged
// by the page it resolves to rather than by how it was spelled.
func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func (r Rules) longestRoleGate(path string) int {
	best := 0
	for _, rule := range r.RoleGated {
		best = max(best, matchLen(rule.Prefix, path))
	}
	return best
}

func longestMatch(prefixes []string, path string) int {
	best := 0
	for _, p := range prefixes {
		if n := matchLen(p, path); n > best {
			best = n
		}
	}
	return best
}

func matchLen(prefix, path string) int {
	if prefix == "/" || prefix == "" {
		if path == "/" {
			return 1
		}
		return 0
	}

	prefix = strings.TrimSuffix(prefix, "/")
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		return len(prefix)
	}
	return 0
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func isAsset(path string) bool {
	if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/images/") || path == "/favicon.ico" {
		return true
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}
