package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Permissions-Policy values. Web clients place video calls from the app's
// own origin, so camera and microphone stay available to it.
const (
	policyCalls  = "camera=(self), microphone=(self), display-capture=(self), geolocation=(), payment=()"
	policyLocked = "camera=(), microphone=(), display-capture=(), geolocation=(), payment=()"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests. Only
	// turn it on when TLS runs end to end.
	EnableHSTS bool
	HSTSMaxAge time.Duration // 180 days when unset

	// AllowCallMedia lets same-origin pages use camera and microphone.
	AllowCallMedia bool

	// PrivatePrefixes mark responses that hold member data. They get
	// "Cache-Control: private, no-cache" so shared caches never keep them
	// while the client may still revalidate with an ETag.
	PrivatePrefixes []string
}

// SecurityHeaders sets hardening headers for a JSON API that also serves a
// websocket endpoint.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 180 * 24 * time.Hour
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains"
	policy := policyLocked
	if opt.AllowCallMedia {
		policy = policyCalls
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", policy)
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if hasAnyPrefix(c.Request.URL.Path, opt.PrivatePrefixes) && h.Get("Cache-Control") == "" {
			h.Set("Cache-Control", "private, no-cache")
			h.Add("Vary", "Authorization")
		}
		c.Next()
	}
}

// isHTTPS trusts X-Forwarded-Proto from the fronting proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
