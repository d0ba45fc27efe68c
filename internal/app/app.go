package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/password"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/revocation"
	"go-auth-service/internal/router"
	"go-auth-service/internal/service"
	"go-auth-service/internal/token"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("connecting to Redis")
	redisClient, err := revocation.Connect(ctx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	revocations := revocation.NewRedisStore(redisClient)

	userRepo := repository.NewUserRepository(db.Pool)
	tokenRepo := repository.NewTokenRepository(db.Pool)

	codec, err := token.NewCodec([]byte(cfg.JWTSecret))
	if err != nil {
		_ = redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	hasher, err := password.NewHasher(password.DefaultParams)
	if err != nil {
		_ = redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	lifetimes := token.Lifetimes{Access: cfg.JWTAccessTTL, Refresh: cfg.JWTRefreshTTL}
	authService := service.NewAuthService(codec, lifetimes, userRepo, tokenRepo, revocations, hasher)
	userService := service.NewUserService(userRepo, hasher)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimit := middleware.NewRateLimitMiddleware(revocations, cfg.RateLimitRequests, cfg.RateLimitWindow)

	appRouter := router.New(cfg, authMiddleware, rateLimit, router.Handlers{
		Auth: handler.NewAuthHandler(authService, userService),
		User: handler.NewUserHandler(userService),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(db.Health),
			"redis":    revocations,
		}),
	})

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go authService.StartRecordJanitor(janitorCtx, cfg.RecordJanitorInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		cfg:    cfg,
		server: server,
		cleanupFuncs: []func(){
			janitorCancel,
			func() {
				if err := redisClient.Close(); err != nil {
					slog.Warn("failed to close redis client", "error", err)
				}
			},
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if runErr != nil {
		return runErr
	}

	slog.Info("server stopped")
	return nil
}
