// Command server runs the gym real-time API: chat threads, calls,
// notifications and the websocket signaling endpoint.
//
// @title                      gym-realtime API
// @version                    1.0
// @description                Chat threads, calls, notifications and websocket signaling for the gym app.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/config"
	"github.com/tbourn/gym-realtime/internal/domain"
	httpapi "github.com/tbourn/gym-realtime/internal/http"
	"github.com/tbourn/gym-realtime/internal/http/handlers"
	"github.com/tbourn/gym-realtime/internal/observability"
	"github.com/tbourn/gym-realtime/internal/push"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/services"
	"github.com/tbourn/gym-realtime/internal/signaling"
	"github.com/tbourn/gym-realtime/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)
	gin.SetMode(cfg.Server.GinMode)

	db, err := repo.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if sysutil.IsTruthy(os.Getenv("MIGRATE_ONLY")) {
		log.Info().Msg("migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.Version(version))
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	if err := run(ctx, cfg, db); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownOTel(flushCtx); err != nil {
		log.Warn().Err(err).Msg("flush traces")
	}
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	sysutil.SetLogLevel(cfg.Log.Level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// run wires the services and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, db *gorm.DB) error {
	calls := &services.CallService{DB: db}

	var auth signaling.RoomAuthorizer
	if cfg.Signaling.VerifyParticipants {
		auth = signaling.AuthorizerFunc(calls.CanJoinRoom)
	}
	relay := signaling.NewRelay(signaling.NewRegistry(), auth)
	hub := signaling.NewHub(relay, signaling.Options{
		SendBuffer:     cfg.Signaling.SendBuffer,
		RelayRPS:       cfg.Signaling.RelayRPS,
		RelayBurst:     cfg.Signaling.RelayBurst,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	// Mobile and web devices are reached over their open websocket; email
	// goes through Resend when a key is configured.
	inApp := push.NewInApp(hub)
	router := push.NewRouter().
		Handle(domain.PlatformIOS, inApp).
		Handle(domain.PlatformAndroid, inApp).
		Handle(domain.PlatformWeb, inApp)
	if email := push.NewEmail(cfg.Notify.ResendAPIKey, cfg.Notify.EmailFrom); email != nil {
		router.Handle(domain.PlatformEmail, email)
	}

	devices := &services.DeviceService{DB: db, Push: router}
	notes := &services.NotificationService{
		DB:          db,
		Push:        router,
		Devices:     devices,
		Invalid:     devices,
		Events:      hub,
		TTL:         cfg.Notify.TTL,
		Concurrency: cfg.Notify.Concurrency,
	}
	collabs := &services.CollaborationService{DB: db, Notifier: notes}
	chat := services.NewChatService(db, collabs, notes, hub)
	chat.MaxContentRunes = cfg.Chat.MaxContentRunes
	chat.PreviewRunes = cfg.Chat.PreviewRunes
	calls.Notifier = notes
	calls.Events = hub

	watchdog := &services.CallWatchdog{
		Calls:       calls,
		RingTimeout: cfg.Calls.RingTimeout,
		Interval:    cfg.Calls.WatchdogInterval,
		Purgers: map[string]services.Purger{
			"notifications": notes,
			"idempotency": services.PurgeFunc(func(ctx context.Context) (int64, error) {
				return repo.DeleteExpiredIdempotency(ctx, db, time.Now().UTC())
			}),
		},
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, handlers.Deps{
		Chat:           chat,
		Calls:          calls,
		Notifications:  notes,
		Devices:        devices,
		Collaborations: collabs,
		WS:             hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("db_driver", cfg.Database.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watchdog.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		// Websockets are hijacked and not tracked by Shutdown.
		hub.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
