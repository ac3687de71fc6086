package main

import (
	"context"
	_ "embed"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fjod/rocketcart/internal/catalogserver"
	h "github.com/fjod/rocketcart/internal/http"
	"github.com/fjod/rocketcart/pkg/logger"
)

//go:embed server.json
var defaultSeed []byte

type Config struct {
	HTTPPort        string
	SeedPath        string
	LogLevel        string
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("CATALOG_PORT", "3333"),
		SeedPath:        getEnv("CATALOG_SEED", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logg, err := logger.New(cfg.LogLevel, "catalog")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	seed, err := catalogserver.ParseSeed(defaultSeed)
	if cfg.SeedPath != "" {
		seed, err = catalogserver.LoadSeed(cfg.SeedPath)
	}
	if err != nil {
		logg.Fatal("failed to load seed", zap.String("path", cfg.SeedPath), zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.RequestLogger(logg))
	r.Use(middleware.Recoverer)
	r.Mount("/", catalogserver.NewHandler(catalogserver.NewMemoryStore(seed)).Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("catalog starting",
			zap.String("addr", srv.Addr),
			zap.Int("products", len(seed.Products)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}
	logg.Info("catalog exited")
}
