package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func identityRouter(opts IdentityOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(opts))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func doGet(r http.Handler, url string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity_BearerAndQueryToken(t *testing.T) {
	secret := []byte("s3cret")
	r := identityRouter(IdentityOptions{Secret: secret})
	tok, err := SignToken(secret, "member-7", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	w := doGet(r, "/me", map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK || w.Body.String() != "member-7" {
		t.Fatalf("bearer: %d %q", w.Code, w.Body.String())
	}
	w = doGet(r, "/me?token="+tok, nil)
	if w.Code != http.StatusOK || w.Body.String() != "member-7" {
		t.Fatalf("query token: %d %q", w.Code, w.Body.String())
	}
}

func TestIdentity_RejectsBadTokens(t *testing.T) {
	secret := []byte("s3cret")
	r := identityRouter(IdentityOptions{Secret: secret})

	expired, _ := SignToken(secret, "u1", -time.Minute)
	foreign, _ := SignToken([]byte("other"), "u1", time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(secret)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u1"}).SignedString(secret)

	cases := map[string]map[string]string{
		"missing":    nil,
		"scheme":     {"Authorization": "Basic abc"},
		"expired":    {"Authorization": "Bearer " + expired},
		"foreign":    {"Authorization": "Bearer " + foreign},
		"no subject": {"Authorization": "Bearer " + noSubject},
		"alg":        {"Authorization": "Bearer " + hs512},
		"header id":  {HeaderUserID: "u1"},
	}
	for name, hdr := range cases {
		if w := doGet(r, "/me", hdr); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
	}
}

func TestIdentity_DevHeaderWithoutSecret(t *testing.T) {
	r := identityRouter(IdentityOptions{})
	if w := doGet(r, "/me", map[string]string{HeaderUserID: " coach-1 "}); w.Code != http.StatusOK || w.Body.String() != "coach-1" {
		t.Fatalf("dev header: %d %q", w.Code, w.Body.String())
	}
	if w := doGet(r, "/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: expected 401, got %d", w.Code)
	}
}
