package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/detodo/marketplace-backend/internal/config"
	"github.com/detodo/marketplace-backend/internal/db"
	"github.com/detodo/marketplace-backend/internal/logger"
	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/server"
	"github.com/detodo/marketplace-backend/internal/storage"
	"github.com/detodo/marketplace-backend/internal/token"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// set by -ldflags at build time
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		logger.Init("detodo-api", "dev", "info")
		logger.L().Fatal("config load", zap.Error(err))
	}
	logger.Init("detodo-api", cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connectWithRetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal("auto migrate", zap.Error(err))
	}

	images, closeImages, err := imageStore(ctx, cfg)
	if err != nil {
		log.Fatal("image store", zap.Error(err))
	}
	defer closeImages()

	tokens := token.NewManager(cfg.JWTSecret, token.DefaultTTL)
	var verifier appmw.IdentityVerifier = tokens
	if cfg.AuthProvider == "firebase" {
		fv, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			log.Fatal("firebase auth", zap.Error(err))
		}
		verifier = fv
	}

	srv := server.New(conn, server.Deps{
		Config:    cfg,
		Verifier:  verifier,
		Tokens:    tokens,
		Images:    images,
		Log:       log,
		SHA:       gitSHA,
		BuildTime: buildTime,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("auth_provider", cfg.AuthProvider),
			zap.Bool("require_subscription", cfg.RequireSubscription),
		)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}
}

func connectWithRetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err := db.Connect(cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn("db connect failed", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return nil, lastErr
}

func imageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, func(), error) {
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}
	local, err := storage.NewLocalStore(cfg.UploadDir, cfg.BackendURL)
	if err != nil {
		return nil, nil, err
	}
	return local, func() {}, nil
}
