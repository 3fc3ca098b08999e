package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Page serves pre-rendered pages and assets from StaticDir for every path
// without an API route. By the time it runs the gate has already allowed the
// request.
func (h *Handler) Page(c *gin.Context) {
	p := c.Request.URL.Path
	if p == "/api" || strings.HasPrefix(p, "/api/") || h.settings.StaticDir == "" {
		newErrorResponse(c, http.StatusNotFound, "Not found")

		return
	}

	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		newErrorResponse(c, http.StatusMethodNotAllowed, "Method not allowed")

		return
	}

	if file, ok := h.resolvePage(p); ok {
		c.File(file)

		return
	}

	newErrorResponse(c, http.StatusNotFound, "Not found")
}

// resolvePage tries <path>, <path>.html and <path>/index.html below
// StaticDir.
func (h *Handler) resolvePage(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	base := filepath.Join(h.settings.StaticDir, filepath.FromSlash(clean))

	candidates := []string{filepath.Join(base, "index.html")}
	if clean != "/" {
		candidates = []string{base, base + ".html", candidates[0]}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
