package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets a client retry a message post or call placement
// without repeating it.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay is the stored outcome of an earlier request with the same key.
type Replay struct {
	ResourceID string
	Status     int
}

// IdempotencyLookup finds a still valid outcome for (userID, scope, key).
// found=false with a nil error means the request is new. Lookup errors do not
// fail the request; it is then treated as new.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (Replay, bool, error)

// IdempotencyOptions bounds accepted keys.
type IdempotencyOptions struct {
	MaxLen  int            // 200 when unset
	Pattern *regexp.Regexp // token characters plus ._~-: when nil
	Now     func() time.Time
}

// GetIdempotencyKey returns the validated key of a write request.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a stored outcome for this key.
func IsReplay(c *gin.Context) bool {
	_, ok := StoredReplay(c)
	return ok
}

// StoredReplay returns the outcome found by the lookup, if any.
func StoredReplay(c *gin.Context) (Replay, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return Replay{}, false
	}
	r, ok := v.(Replay)
	return r, ok
}

// IdempotencyScope names what a keyed request acts on: the :id path parameter
// when present (the thread of a message post), otherwise the route (call
// placement). The same key may be reused across scopes.
func IdempotencyScope(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyIdemScope); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	if id := c.Param("id"); id != "" {
		return id
	}
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// IdempotencyValidator checks the Idempotency-Key of write requests and,
// given a lookup, marks requests whose outcome is already stored. Marked
// requests skip the rate limiter; handlers answer them from StoredReplay.
// Keys on reads and deletes are ignored.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !isWrite(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		scope := IdempotencyScope(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			rep, found, err := lookup(c.Request.Context(), UserID(c), scope, key, now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Debug().Err(err).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemReplay, rep)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
