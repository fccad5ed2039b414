// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements caller identification. Tokens are HS256 JWTs whose
// subject is the user id, read from the Authorization header or, for
// websocket upgrades where browsers cannot set headers, from the token query
// parameter. Without a secret the X-User-ID header identifies the caller,
// which is only meant for local development and tests.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CtxUserID is the Gin context key holding the authenticated user id.
const CtxUserID = "userID"

// HeaderUserID identifies the caller when no JWT secret is configured.
const HeaderUserID = "X-User-ID"

// IdentityOptions configures Identity.
type IdentityOptions struct {
	// Secret verifies HS256 tokens. Empty enables the X-User-ID header.
	Secret []byte
	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration
}

var errNoToken = errors.New("missing bearer token")

// Identity authenticates the caller and stores the user id under CtxUserID.
// Unauthenticated requests are rejected with 401.
func Identity(opts IdentityOptions) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(opts.Leeway),
	)
	keyFn := func(*jwt.Token) (any, error) { return opts.Secret, nil }

	return func(c *gin.Context) {
		var uid string
		if len(opts.Secret) == 0 {
			uid = strings.TrimSpace(c.GetHeader(HeaderUserID))
		} else {
			raw, err := bearer(c)
			if err == nil {
				var claims jwt.RegisteredClaims
				if _, err = parser.ParseWithClaims(raw, &claims, keyFn); err == nil {
					uid = strings.TrimSpace(claims.Subject)
				}
			}
			if err != nil {
				LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			}
		}
		if uid == "" {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "authentication required",
			})
			return
		}
		c.Set(CtxUserID, uid)
		c.Next()
	}
}

// bearer returns the raw token from the Authorization header or the token
// query parameter.
func bearer(c *gin.Context) (string, error) {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, tok, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), nil
		}
		return "", errNoToken
	}
	if tok := strings.TrimSpace(c.Query("token")); tok != "" {
		return tok, nil
	}
	return "", errNoToken
}

// UserID returns the authenticated user id, or "" when Identity did not run.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(CtxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SignToken issues an HS256 token for userID valid for ttl.
func SignToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
