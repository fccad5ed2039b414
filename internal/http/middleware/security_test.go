package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securedRouter(opt SecurityOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/threads", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/threads/:id/messages", func(c *gin.Context) {
		c.Header("Cache-Control", "private, max-age=0")
		c.Status(http.StatusOK)
	})
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	h := w.Header()
	want := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "no-referrer",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Permissions-Policy":                policyLocked,
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Fatalf("%s = %q; want %q", k, got, v)
		}
	}
	// Plain HTTP never gets HSTS.
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS sent over http")
	}
	if h.Get("Cache-Control") != "" {
		t.Fatalf("public path marked private")
	}
}

func TestSecurityHeaders_CallMediaPolicy(t *testing.T) {
	r := securedRouter(SecurityOptions{AllowCallMedia: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("Permissions-Policy"); got != policyCalls {
		t.Fatalf("Permissions-Policy = %q", got)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	cases := []struct {
		name   string
		maxAge time.Duration
		tls    bool
		proto  string
		want   string
	}{
		{"tls default age", 0, true, "", "max-age=15552000; includeSubDomains"},
		{"proxy https", 24 * time.Hour, false, "HTTPS", "max-age=86400; includeSubDomains"},
		{"proxy http", 24 * time.Hour, false, "http", ""},
	}
	for _, tc := range cases {
		r := securedRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: tc.maxAge})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		if tc.tls {
			req.TLS = &tls.ConnectionState{}
		}
		if tc.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tc.proto)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get("Strict-Transport-Security"); got != tc.want {
			t.Fatalf("%s: HSTS = %q; want %q", tc.name, got, tc.want)
		}
	}
}

func TestSecurityHeaders_PrivatePrefixes(t *testing.T) {
	r := securedRouter(SecurityOptions{PrivatePrefixes: []string{"", "/api/v1/"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil))
	if w.Header().Get("Cache-Control") != "private, no-cache" || w.Header().Get("Vary") != "Authorization" {
		t.Fatalf("member data not marked private: %v", w.Header())
	}

	// A handler's own cache policy wins.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/threads/t1/messages", nil))
	if got := w.Header().Get("Cache-Control"); got != "private, max-age=0" {
		t.Fatalf("Cache-Control = %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("empty prefix must not match everything")
	}
}
