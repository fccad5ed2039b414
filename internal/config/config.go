// Package config loads the service configuration from the environment.
//
// Unset variables take their defaults. A variable that is set but does not
// parse is an error, as is any value outside its allowed range; Load reports
// all of them at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port              string        // PORT, just the number
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // GIN_MODE: debug|release|test
}

// LogConfig selects the zerolog level and output.
type LogConfig struct {
	Level  string // LOG_LEVEL: debug|info|warn|error|fatal|panic
	Pretty bool   // LOG_PRETTY, console writer for development
}

// DatabaseConfig selects the GORM dialector.
type DatabaseConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH, sqlite file
	URL    string // DATABASE_URL, postgres DSN
}

// RateConfig bounds HTTP requests per user (or per IP when anonymous).
type RateConfig struct {
	RPS   float64 // RATE_RPS, 0 refuses everything past the burst
	Burst int     // RATE_BURST
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS (csv)
}

// SecurityConfig controls Strict-Transport-Security.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
	Environment string  // APP_ENV, reported as deployment.environment
}

// ChatConfig bounds message content and thread previews.
type ChatConfig struct {
	MaxContentRunes int // CHAT_MAX_CONTENT_RUNES
	PreviewRunes    int // CHAT_PREVIEW_RUNES
}

// CallConfig drives the ringing watchdog.
type CallConfig struct {
	RingTimeout      time.Duration // CALL_RING_TIMEOUT
	WatchdogInterval time.Duration // CALL_WATCHDOG_INTERVAL
}

// NotifyConfig defines notification persistence and delivery settings.
type NotifyConfig struct {
	TTL          time.Duration // NOTIFICATION_TTL
	Concurrency  int           // NOTIFY_CONCURRENCY (max parallel pushes)
	ResendAPIKey string        // RESEND_API_KEY (email push disabled when empty)
	EmailFrom    string        // EMAIL_FROM

	// BroadcastAdmins may push to topics. Empty disables topic broadcast.
	BroadcastAdmins []string // BROADCAST_ADMINS (csv of user ids)
}

// SignalingConfig defines websocket and relay settings.
type SignalingConfig struct {
	SendBuffer         int     // WS_SEND_BUFFER (outbound frames per client)
	RelayRPS           float64 // WS_RELAY_RPS
	RelayBurst         int     // WS_RELAY_BURST
	VerifyParticipants bool    // SIGNALING_VERIFY_PARTICIPANTS
}

// Config holds all configuration values for the application.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig

	SwaggerEnabled bool   // SWAGGER_ENABLED
	APIBasePath    string // API_BASE_PATH, normalized to "/x/y"
	JWTSecret      string // AUTH_JWT_SECRET; empty falls back to X-User-ID

	Chat      ChatConfig
	Calls     CallConfig
	Notify    NotifyConfig
	Signaling SignalingConfig

	Rate           RateConfig
	CORS           CORSConfig
	Security       SecurityConfig
	IdempotencyTTL time.Duration // IDEMPOTENCY_TTL

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if it is invalid.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration.
func Load() (Config, error) {
	e := &env{lookup: os.LookupEnv}
	cfg := Config{
		Server: ServerConfig{
			Port:              e.str("PORT", "8080"),
			ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
			ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
			WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
			IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
			GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(e.str("LOG_LEVEL", "info")),
			Pretty: e.flag("LOG_PRETTY", false),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(e.str("DB_DRIVER", "sqlite")),
			Path:   e.str("DB_PATH", "app.db"),
			URL:    e.str("DATABASE_URL", ""),
		},

		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),
		JWTSecret:      e.str("AUTH_JWT_SECRET", ""),

		Chat: ChatConfig{
			MaxContentRunes: e.integer("CHAT_MAX_CONTENT_RUNES", 4000),
			PreviewRunes:    e.integer("CHAT_PREVIEW_RUNES", 120),
		},
		Calls: CallConfig{
			RingTimeout:      e.duration("CALL_RING_TIMEOUT", 45*time.Second),
			WatchdogInterval: e.duration("CALL_WATCHDOG_INTERVAL", 5*time.Second),
		},
		Notify: NotifyConfig{
			TTL:             e.duration("NOTIFICATION_TTL", 30*24*time.Hour),
			Concurrency:     e.integer("NOTIFY_CONCURRENCY", 8),
			ResendAPIKey:    e.str("RESEND_API_KEY", ""),
			EmailFrom:       e.str("EMAIL_FROM", "Gym <noreply@example.com>"),
			BroadcastAdmins: e.list("BROADCAST_ADMINS"),
		},
		Signaling: SignalingConfig{
			SendBuffer:         e.integer("WS_SEND_BUFFER", 256),
			RelayRPS:           e.number("WS_RELAY_RPS", 50),
			RelayBurst:         e.integer("WS_RELAY_BURST", 100),
			VerifyParticipants: e.flag("SIGNALING_VERIFY_PARTICIPANTS", true),
		},

		Rate: RateConfig{
			RPS:   e.number("RATE_RPS", 5),
			Burst: e.integer("RATE_BURST", 10),
		},
		CORS: CORSConfig{AllowedOrigins: e.list("CORS_ALLOWED_ORIGINS")},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "gym-realtime"),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1),
			Environment: e.str("APP_ENV", "development"),
		},
	}

	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	switch cfg.Server.GinMode {
	case "debug", "release", "test":
	default:
		cfg.Server.GinMode = "release"
	}

	cfg.validate(e)
	return cfg, errors.Join(e.errs...)
}

func (cfg Config) validate(e *env) {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		e.fail("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}

	s := cfg.Server
	e.check(strings.TrimSpace(s.Port) != "", "PORT must not be empty")
	e.check(s.ReadTimeout > 0 && s.ReadHeaderTimeout > 0 && s.WriteTimeout > 0 && s.IdleTimeout > 0,
		"server timeouts must be positive durations")
	e.check(s.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch cfg.Database.Driver {
	case "sqlite":
		e.check(strings.TrimSpace(cfg.Database.Path) != "", "DB_PATH must not be empty")
	case "postgres":
		e.check(strings.TrimSpace(cfg.Database.URL) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		e.fail("DB_DRIVER must be one of: sqlite, postgres")
	}

	e.check(cfg.Chat.MaxContentRunes >= 1 && cfg.Chat.PreviewRunes >= 1,
		"CHAT_MAX_CONTENT_RUNES and CHAT_PREVIEW_RUNES must be >= 1")
	e.check(cfg.Calls.RingTimeout > 0 && cfg.Calls.WatchdogInterval > 0,
		"CALL_RING_TIMEOUT and CALL_WATCHDOG_INTERVAL must be positive")
	e.check(cfg.Notify.TTL > 0, "NOTIFICATION_TTL must be > 0")
	e.check(cfg.Notify.Concurrency >= 1, "NOTIFY_CONCURRENCY must be >= 1")
	e.check(cfg.Signaling.SendBuffer >= 1, "WS_SEND_BUFFER must be >= 1")
	e.check(cfg.Signaling.RelayRPS >= 0 && cfg.Signaling.RelayBurst >= 1,
		"WS_RELAY_RPS must be >= 0 and WS_RELAY_BURST >= 1")

	e.check(cfg.Rate.RPS >= 0, "RATE_RPS must be >= 0")
	e.check(cfg.Rate.Burst >= 1, "RATE_BURST must be >= 1")
	e.check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	e.check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	e.check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1,
		"OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
}

// env reads typed variables and collects every problem it meets.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) fail(msg string) { e.errs = append(e.errs, errors.New(msg)) }

func (e *env) check(ok bool, msg string) {
	if !ok {
		e.fail(msg)
	}
}

// raw returns the trimmed value of k; blank counts as unset.
func (e *env) raw(k string) (string, bool) {
	v, ok := e.lookup(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) malformed(k, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, kind))
}

func (e *env) str(k, def string) string {
	if v, ok := e.raw(k); ok {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.raw(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.malformed(k, v, "integer")
		return def
	}
	return i
}

func (e *env) number(k string, def float64) float64 {
	v, ok := e.raw(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.malformed(k, v, "number")
		return def
	}
	return f
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.raw(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.malformed(k, v, "boolean")
	return def
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.raw(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.malformed(k, v, "duration")
		return def
	}
	return d
}

// list splits a comma separated list, dropping blank items.
func (e *env) list(k string) []string {
	v, ok := e.raw(k)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
