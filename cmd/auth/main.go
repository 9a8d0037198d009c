package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user_auth/internal/auth"
	"user_auth/internal/config"
	"user_auth/internal/http_server/handlers/login"
	"user_auth/internal/http_server/handlers/logout"
	"user_auth/internal/http_server/handlers/profile"
	"user_auth/internal/http_server/handlers/refresh"
	resendEmail "user_auth/internal/http_server/handlers/resend_verification_email"
	"user_auth/internal/http_server/handlers/signup"
	"user_auth/internal/http_server/handlers/verify"
	resp "user_auth/internal/lib/api/response"
	jwtlib "user_auth/internal/lib/jwt"
	sl "user_auth/internal/lib/logger"
	"user_auth/internal/middleware/authn"
	rateLimit "user_auth/internal/middleware/ratelimit"
	"user_auth/internal/rabbitmq"
	"user_auth/internal/storage/postgres"
	redisrepo "user_auth/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	attempts, err := redisrepo.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer attempts.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	tokens := jwtlib.NewTokenManager(cfg.Tokens)

	authService := auth.New(
		log,
		storage,
		storage,
		tokens,
		msgBroker,
		cfg.Tokens.VerificationTokenTTL,
		cfg.HTTPServer.BaseURL,
	)

	router := setupRouter(log, authService, tokens, attempts)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	tokens *jwtlib.TokenManager,
	attempts rateLimit.AttemptCounter,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, resp.OKMessage("API is running..."))
	})

	r.With(rateLimit.Signup()).Post("/signup",
		signup.New(log, validate, authService),
	)
	r.With(rateLimit.Login(log, attempts)).Post("/login",
		login.New(log, validate, authService),
	)
	r.With(rateLimit.Verify()).Get("/verify-email",
		verify.New(log, authService),
	)
	r.With(rateLimit.Refresh()).Post("/refresh",
		refresh.New(log, authService),
	)
	r.With(rateLimit.Logout()).Post("/logout",
		logout.New(log, authService),
	)
	r.With(rateLimit.ResendVerificationEmail()).Post("/resend-verification",
		resendEmail.New(log, validate, authService),
	)

	r.Group(func(r chi.Router) {
		r.Use(authn.New(log, tokens))

		r.Get("/profile",
			profile.New(log, authService),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
