package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/gym-realtime/internal/config"
	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/http/handlers"
	"github.com/tbourn/gym-realtime/internal/http/middleware"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/services"
	"github.com/tbourn/gym-realtime/internal/signaling"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		Rate:           config.RateConfig{RPS: 100, Burst: 10},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newApp wires the real services behind RegisterRoutes.
func newApp(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB, *signaling.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	hub := signaling.NewHub(signaling.NewRelay(nil, nil), signaling.Options{})
	t.Cleanup(hub.Shutdown)

	devices := &services.DeviceService{DB: db}
	notes := &services.NotificationService{DB: db, Devices: devices, Invalid: devices, Events: hub, TTL: time.Hour}
	collabs := &services.CollaborationService{DB: db, Notifier: notes}
	deps := handlers.Deps{
		Chat:           services.NewChatService(db, collabs, notes, hub),
		Calls:          &services.CallService{DB: db, Notifier: notes, Events: hub},
		Notifications:  notes,
		Devices:        devices,
		Collaborations: collabs,
		WS:             hub,
	}
	r := gin.New()
	RegisterRoutes(r, db, cfg, deps)
	return r, db, hub
}

func call(r http.Handler, method, path, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newApp(t, baseConfig())

	// /health works
	w := call(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	// /metrics is wired
	w = call(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w := call(r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	// NoMethod → 405 (POST /health)
	if w := call(r, http.MethodPost, "/health", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off by default
	if w := call(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _, _ := newApp(t, cfg)

	w := call(r, http.MethodGet, "/health", "", nil, "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	// The API lives under the configured base path.
	if w := call(r, http.MethodGet, "/api/v2/threads", "u1", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/threads = %d", w.Code)
	}
}

func TestRegisterRoutes_SwaggerAndGzip(t *testing.T) {
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r, _, _ := newApp(t, cfg)

	if w := call(r, http.MethodGet, "/swagger/doc.json", "", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gym-realtime") {
		t.Fatalf("swagger doc: %d", w.Code)
	}

	w := call(r, http.MethodGet, "/api/v1/threads", "u1", nil, "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got %d %q", w.Code, w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, _ := io.ReadAll(zr)
	if !strings.Contains(string(raw), `"threads"`) {
		t.Fatalf("decompressed body = %s", raw)
	}
}

func TestRegisterRoutes_IdentityRequired(t *testing.T) {
	r, _, _ := newApp(t, baseConfig())
	for _, path := range []string{"/api/v1/threads", "/api/v1/calls", "/api/v1/notifications", "/ws"} {
		if w := call(r, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without identity = %d", path, w.Code)
		}
	}
}

func TestRegisterRoutes_JWTIdentity(t *testing.T) {
	cfg := baseConfig()
	cfg.JWTSecret = "router-secret"
	r, _, _ := newApp(t, cfg)

	// The dev header is ignored once a secret is configured.
	if w := call(r, http.MethodGet, "/api/v1/threads", "u1", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("header identity accepted with secret: %d", w.Code)
	}
	tok, err := middleware.SignToken([]byte(cfg.JWTSecret), "u1", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if w := call(r, http.MethodGet, "/api/v1/threads", "", nil, "Authorization", "Bearer "+tok); w.Code != http.StatusOK {
		t.Fatalf("bearer identity: %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_ChatAndCallFlow(t *testing.T) {
	r, db, _ := newApp(t, baseConfig())
	ctx := context.Background()

	w := call(r, http.MethodPost, "/api/v1/collaborations", "member", map[string]string{"addressee_id": "coach"})
	var col domain.Collaboration
	if w.Code != http.StatusCreated || json.Unmarshal(w.Body.Bytes(), &col) != nil {
		t.Fatalf("request collaboration: %d %s", w.Code, w.Body.String())
	}
	if w := call(r, http.MethodPost, "/api/v1/collaborations/"+col.ID+"/accept", "coach", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: %d", w.Code)
	}
	w = call(r, http.MethodPost, "/api/v1/collaborations/"+col.ID+"/thread", "member", nil)
	var th domain.ChatThread
	if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &th) != nil {
		t.Fatalf("open thread: %d %s", w.Code, w.Body.String())
	}

	msgPath := "/api/v1/threads/" + th.ID + "/messages"
	for i := 0; i < 2; i++ {
		w := call(r, http.MethodPost, msgPath, "member", map[string]string{"content": "Leg day at 7"}, middleware.HeaderIdempotencyKey, "router-msg-1")
		if w.Code != http.StatusCreated {
			t.Fatalf("post %d: %d %s", i, w.Code, w.Body.String())
		}
	}
	if n, _ := repo.CountMessages(ctx, db, th.ID); n != 1 {
		t.Fatalf("messages = %d; want 1 after keyed retry", n)
	}
	// The coach was notified of the request and the message.
	if n, _ := repo.CountActiveNotifications(ctx, db, "coach", time.Now()); n != 2 {
		t.Fatalf("coach notifications = %d; want 2", n)
	}

	w = call(r, http.MethodPost, "/api/v1/calls", "member", map[string]string{"recipient_id": "coach", "thread_id": th.ID})
	var c domain.Call
	if w.Code != http.StatusCreated || json.Unmarshal(w.Body.Bytes(), &c) != nil || c.Status != domain.CallRinging {
		t.Fatalf("place call: %d %s", w.Code, w.Body.String())
	}
	if w := call(r, http.MethodPost, "/api/v1/calls", "coach", map[string]string{"recipient_id": "member"}); w.Code != http.StatusConflict {
		t.Fatalf("second live call: %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/api/v1/calls/"+c.CallID+"/accept", "coach", nil); w.Code != http.StatusOK {
		t.Fatalf("accept call: %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/api/v1/calls/"+c.CallID+"/end", "member", nil); w.Code != http.StatusOK {
		t.Fatalf("end call: %d", w.Code)
	}
	w = call(r, http.MethodPost, "/api/v1/calls/"+c.CallID+"/end", "coach", nil)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), `"status":"ended"`) {
		t.Fatalf("double end: %d %s", w.Code, w.Body.String())
	}

	if w := call(r, http.MethodGet, "/api/v1/notifications/unread-count", "coach", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"unread":3`) {
		t.Fatalf("coach unread: %d %s", w.Code, w.Body.String())
	}

	// Notification listings revalidate by ETag and are never publicly cached.
	w = call(r, http.MethodGet, "/api/v1/notifications", "coach", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"notifications:coach:3:3:`) || w.Header().Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("list notifications: %d etag=%q cc=%q", w.Code, etag, w.Header().Get("Cache-Control"))
	}
	if w := call(r, http.MethodGet, "/api/v1/notifications", "coach", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("revalidate: %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/api/v1/notifications/read-all", "coach", nil); w.Code != http.StatusOK {
		t.Fatalf("read-all: %d", w.Code)
	}
	if w := call(r, http.MethodGet, "/api/v1/notifications", "coach", nil, "If-None-Match", etag); w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("etag unchanged after read-all: %d", w.Code)
	}
}

func TestRegisterRoutes_BroadcastAdmins(t *testing.T) {
	cfg := baseConfig()
	cfg.Notify.BroadcastAdmins = []string{"admin"}
	r, _, _ := newApp(t, cfg)
	body := map[string]string{"title": "Pool closed"}
	if w := call(r, http.MethodPost, "/api/v1/topics/gym-news/broadcast", "member", body); w.Code != http.StatusForbidden {
		t.Fatalf("member broadcast: %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/api/v1/topics/gym-news/broadcast", "admin", body); w.Code != http.StatusAccepted {
		t.Fatalf("admin broadcast: %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_RateLimitPerUser(t *testing.T) {
	cfg := baseConfig()
	cfg.Rate.RPS = 0.001
	cfg.Rate.Burst = 2
	r, _, _ := newApp(t, cfg)
	for i := 0; i < 2; i++ {
		if w := call(r, http.MethodGet, "/api/v1/threads", "u1", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, w.Code)
		}
	}
	if w := call(r, http.MethodGet, "/api/v1/threads", "u1", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	// Another user has its own bucket.
	if w := call(r, http.MethodGet, "/api/v1/threads", "u2", nil); w.Code != http.StatusOK {
		t.Fatalf("u2 limited by u1's bucket: %d", w.Code)
	}
}

func TestRegisterRoutes_WebsocketSignaling(t *testing.T) {
	r, _, hub := newApp(t, baseConfig())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	dial := func(user string) *websocket.Conn {
		hdr := http.Header{}
		hdr.Set(middleware.HeaderUserID, user)
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", hdr)
		if err != nil {
			t.Fatalf("dial %s: %v", user, err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	read := func(conn *websocket.Conn, op string) signaling.Event {
		for i := 0; i < 10; i++ {
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			var ev signaling.Event
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("read: %v", err)
			}
			if ev.Op == op {
				return ev
			}
		}
		t.Fatalf("no %s event", op)
		return signaling.Event{}
	}

	a, b := dial("member"), dial("coach")
	read(a, signaling.OpReady)
	read(b, signaling.OpReady)
	if hub.Online("member") != 1 || hub.Online("coach") != 1 {
		t.Fatalf("hub did not register both connections")
	}

	_ = a.WriteJSON(signaling.Event{Op: signaling.OpJoin, CallID: "call-1"})
	read(a, signaling.OpJoined)
	_ = b.WriteJSON(signaling.Event{Op: signaling.OpJoin, CallID: "call-1"})
	read(b, signaling.OpJoined)
	read(a, signaling.OpPeerJoined)

	_ = a.WriteJSON(signaling.Event{Op: signaling.OpOffer, CallID: "call-1", Data: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})
	if ev := read(b, signaling.OpOffer); string(ev.Data) != `{"type":"offer","sdp":"v=0"}` || ev.From == "" {
		t.Fatalf("relayed offer = %+v", ev)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	// non-root prefix
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func Test_allowList(t *testing.T) {
	allow := allowList([]string{"a", "b"})
	if !allow("a") || !allow("b") || allow("c") || allow("") {
		t.Fatalf("allowList membership wrong")
	}
	if allowList(nil)("a") {
		t.Fatalf("empty list must deny")
	}
}
