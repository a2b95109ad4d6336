package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/database"
	"github.com/stemsi/institute-portal/internal/handler"
	"github.com/stemsi/institute-portal/internal/logger"
	"github.com/stemsi/institute-portal/internal/middleware"
	"github.com/stemsi/institute-portal/internal/repository"
	"github.com/stemsi/institute-portal/internal/router"
	"github.com/stemsi/institute-portal/internal/service"
	"github.com/stemsi/institute-portal/internal/validator"
	"github.com/stemsi/institute-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("institutes_file", cfg.InstitutesFile).
		Msg("Starting Institute Portal")

	if cfg.SessionSecret == "dev-secret-change-me" {
		log.Warn().Msg("SESSION_SECRET is the development default")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(rdb, cfg.SessionTTL)
	instituteRepo := repository.NewInstituteRepository(afero.NewOsFs(), cfg.InstitutesFile)

	// ─── Initialize Services ──────────────────────────────────────────
	credentialService, err := service.NewCredentialService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid credential configuration")
	}
	sessionService := service.NewSessionService(cfg, sessionRepo)
	authService := service.NewAuthService(credentialService, service.NewCaptchaService(), sessionService, log)
	broadcaster := service.NewInstituteBroadcaster(rdb, log)
	// Instances sharing INSTITUTES_FILE take turns writing it.
	registryLock := repository.NewRegistryLock(rdb, config.CacheKey.InstitutesLockKey(), 10*time.Second)
	instituteService := service.NewInstituteService(instituteRepo, broadcaster, log).WithLocker(registryLock)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessionService, instituteService, cfg, log),
		Admin:     handler.NewAdminHandler(instituteService, sessionService, log),
		Dashboard: handler.NewDashboardHandler(instituteService, sessionService, log),
		WS:        handler.NewWSHandler(instituteService, broadcaster, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(handler.PingFunc(database.Ping(rdb)), instituteService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	// Other instances sharing INSTITUTES_FILE announce their edits on Redis.
	go worker.NewRegistrySyncWorker(broadcaster, instituteService, log).Start(ctx)

	// ─── Login Throttling ─────────────────────────────────────────────
	var loginLimiter *middleware.RateLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
		go loginLimiter.Run(ctx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(sessionService, handlers, loginLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked WebSocket connections outlive Shutdown; tie them to ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// Cancelling ctx stops the workers, the limiter sweep and open streams.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
