// Package httpapi mounts the realtime core on a Gin engine: the REST API
// under the configured base path, the /ws signaling socket, health, metrics
// and optional Swagger UI. Middleware runs tracing first, then request ids,
// logging and recovery, so every later failure is logged with its id.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/gym-realtime/docs" // OpenAPI docs registration
	"github.com/tbourn/gym-realtime/internal/config"
	"github.com/tbourn/gym-realtime/internal/http/handlers"
	"github.com/tbourn/gym-realtime/internal/http/middleware"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// wsPath is mounted outside the API base path so proxies can route it
// separately.
const wsPath = "/ws"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under cfg.APIBasePath plus the websocket endpoint.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII and token scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limit
//  6. Metrics
//  7. Gzip (websocket and /metrics excluded)
//  8. CORS and Security headers
//
// Inside the API group:
//  1. Identity: resolve the acting user (JWT or X-User-ID)
//  2. Idempotency validator (before rate limiter to allow bypass on replay)
//  3. Rate limiter (per user, bypass on replay)
//
// deps carries the services; DB, IdempotencyTTL and CanBroadcast are filled
// from db and cfg when unset.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps handlers.Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-User-ID"},
		QuietPaths:  []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression; the websocket upgrade must see an untouched writer
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPath, "/metrics"})))

	// 8) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		AllowCallMedia:  true,
		PrivatePrefixes: []string{strings.TrimRight(cfg.APIBasePath, "/") + "/"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if deps.DB == nil {
		deps.DB = db
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = cfg.IdempotencyTTL
	}
	if deps.CanBroadcast == nil {
		deps.CanBroadcast = allowList(cfg.Notify.BroadcastAdmins)
	}
	h := handlers.New(deps)

	identity := middleware.Identity(middleware.IdentityOptions{
		Secret: []byte(cfg.JWTSecret),
		Leeway: 30 * time.Second,
	})

	// Realtime: signaling and push events share one socket per device.
	r.GET(wsPath, identity, h.ServeWS)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(identity)
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (middleware.Replay, bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, repo.IdemKey{UserID: userID, Scope: scope, Key: key}, now)
			if errors.Is(err, repo.ErrNotFound) {
				return middleware.Replay{}, false, nil
			}
			if err != nil {
				return middleware.Replay{}, false, err
			}
			return middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, true, nil
		},
	))
	rl := middleware.NewRateLimiter(cfg.Rate.RPS, cfg.Rate.Burst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Collaborations
		api.POST("/collaborations", h.RequestCollaboration)
		api.GET("/collaborations", h.ListCollaborations)
		api.POST("/collaborations/:id/accept", h.AcceptCollaboration)
		api.POST("/collaborations/:id/thread", h.OpenThread)

		// Threads
		api.GET("/threads", h.ListThreads)
		api.DELETE("/threads/:id", h.DeactivateThread)
		api.POST("/threads/:id/read", h.MarkThreadRead)
		api.GET("/threads/:id/unread", h.ThreadUnread)
		api.GET("/threads/:id/search", h.SearchThread)

		// Messages
		api.GET("/threads/:id/messages", h.ListMessages)
		api.POST("/threads/:id/messages", h.PostMessage)

		// Calls
		api.POST("/calls", h.PlaceCall)
		api.GET("/calls", h.ListCalls)
		api.GET("/calls/:id", h.GetCall)
		api.POST("/calls/:id/accept", h.AcceptCall)
		api.POST("/calls/:id/reject", h.RejectCall)
		api.POST("/calls/:id/end", h.EndCall)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.NotificationsUnread)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.POST("/topics/:topic/broadcast", h.BroadcastTopic)

		// Devices
		api.PUT("/devices", h.RegisterDevice)
		api.DELETE("/devices/:token", h.UnregisterDevice)
	}
}

// corsMiddleware returns the CORS handlers for the configured allowlist.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Idempotency-Replayed"}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// allowList reports membership in ids. An empty list allows nobody.
func allowList(ids []string) func(string) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(userID string) bool {
		if userID == "" {
			return false
		}
		_, ok := set[userID]
		return ok
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
