package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/config"
	"github.com/teamgrid/server-go/internal/database"
	"github.com/teamgrid/server-go/internal/handler"
	"github.com/teamgrid/server-go/internal/jobs"
	"github.com/teamgrid/server-go/internal/middleware"
	"github.com/teamgrid/server-go/internal/redis"
	"github.com/teamgrid/server-go/internal/repository"
	"github.com/teamgrid/server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	attemptRepo := repository.NewAttemptLogRepository(db.DB)
	teamRepo := repository.NewTeamRepository(db.DB)
	membershipRepo := repository.NewMembershipRepository(db.DB)
	invitationRepo := repository.NewInvitationRepository(db.DB)

	sessionPolicy := config.DefaultSessionPolicy()
	sessionPolicy.TTL = cfg.SessionTTL()

	passwordPolicy := service.NewPasswordPolicy(cfg.BcryptCost)
	loginLimiter := service.NewLoginRateLimiter(attemptRepo, config.DefaultLoginRateLimitPolicy())
	sessionService := service.NewSessionService(sessionRepo, sessionPolicy)
	csrfManager := service.NewCSRFManager(sessionRepo)
	authorizer := service.NewAuthorizer(sessionService, membershipRepo)
	authService := service.NewAuthService(
		userRepo, teamRepo, passwordPolicy, loginLimiter, sessionService, csrfManager,
	)
	teamService := service.NewTeamService(
		db, userRepo, teamRepo, membershipRepo, invitationRepo,
		passwordPolicy, sessionService, csrfManager,
	)
	ipLimiter := service.NewRateLimiter(redisClient.Client)

	isProduction := cfg.IsProduction()
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	csrfMiddleware := middleware.NewCSRFMiddleware(csrfManager)
	activityMiddleware := middleware.NewActivityMiddleware(sessionService)
	teamContextMiddleware := middleware.NewTeamContextMiddleware(authorizer)
	adminMiddleware := middleware.NewAdminMiddleware(authorizer)
	loginIPLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		ipLimiter, cfg.LoginIPLimitPerMin, time.Minute, "login",
	)

	authHandler := handler.NewAuthHandler(authService, teamService, csrfManager, loginIPLimitMiddleware.Handler)
	teamHandler := handler.NewTeamHandler(teamService)
	invitationHandler := handler.NewInvitationHandler(teamService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(activityMiddleware.Handler)
	r.Use(csrfMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/api/teams", func(r chi.Router) {
		r.Route("/current/members", func(r chi.Router) {
			r.Use(teamContextMiddleware.Handler)
			r.Use(adminMiddleware.Handler)
			r.Mount("/", teamHandler.MemberRoutes())
		})
		r.Mount("/", teamHandler.Routes())
	})

	r.Route("/api/invitations", func(r chi.Router) {
		r.Get("/{token}/details", invitationHandler.Details)
		r.Post("/{token}/accept", invitationHandler.Accept)
		r.Group(func(r chi.Router) {
			r.Use(teamContextMiddleware.Handler)
			r.Use(adminMiddleware.Handler)
			r.Post("/", invitationHandler.Create)
			r.Get("/", invitationHandler.List)
			r.Delete("/{invitationID}", invitationHandler.Revoke)
		})
	})

	cleanupJob := jobs.NewCleanupJob(
		sessionService, loginLimiter, config.LoginAttemptRetention, config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
