package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginMatcher decides which browser origins may call the API. Entries
// are exact origins or "*.example.com", which admits example.com and any
// of its subdomains on any scheme.
type OriginMatcher struct {
	exact     map[string]bool
	wildcards []string
}

func NewOriginMatcher(origins []string) *OriginMatcher {
	m := &OriginMatcher{exact: make(map[string]bool)}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
		case strings.HasPrefix(origin, "*."):
			m.wildcards = append(m.wildcards, strings.ToLower(origin[2:]))
		default:
			m.exact[origin] = true
		}
	}
	return m
}

// Allowed reports whether origin may be served. A missing origin (curl,
// server-to-server) is allowed.
func (m *OriginMatcher) Allowed(origin string) bool {
	if origin == "" || m.exact[origin] {
		return true
	}
	if len(m.wildcards) == 0 {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, wildcard := range m.wildcards {
		if host == wildcard || strings.HasSuffix(host, "."+wildcard) {
			return true
		}
	}
	return false
}

// CORS middleware for handling cross-origin requests
func CORS(matcher *OriginMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && matcher.Allowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, X-Device-Id, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
