package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"optileno-backend/internal/config"
	"optileno-backend/internal/db"
	"optileno-backend/internal/observability"
	redisdb "optileno-backend/internal/redis"
)

func main() {
	cfg := config.Load()
	observability.InitializeLogger(cfg.Log)
	defer observability.Sync()
	log := observability.GetLogger().Named("api")

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		log.Fatal("failed to connect db", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		log.Fatal("failed to migrate db", zap.Error(err))
	}
	log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	cache := newCache(ctx, cfg, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withCORS(cfg, routes(cfg, database, cache)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("api server is running", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("api server stopped")
}

// newCache connects to redis when REDIS_ADDR is set. Without it, or when
// the server is unreachable, responses are computed on every request.
func newCache(ctx context.Context, cfg *config.Config, log *zap.Logger) redisdb.Cache {
	if cfg.RedisAddr == "" {
		log.Info("redis disabled, caching off")
		return redisdb.NopCache{}
	}
	client := redisdb.NewClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, caching off", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return redisdb.NopCache{}
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return redisdb.NewCache(client, "optileno:")
}

func withCORS(cfg *config.Config, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Session-Id", "X-Platform", "X-App-Version", "X-Device-Locale", "Idempotency-Key", "X-Source-Event-Key"},
		AllowCredentials: true,
	}).Handler(h)
}
