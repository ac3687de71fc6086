package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/rocketcart/internal/cart"
	"github.com/fjod/rocketcart/internal/catalog"
	"github.com/fjod/rocketcart/internal/config"
	"github.com/fjod/rocketcart/internal/domain"
	h "github.com/fjod/rocketcart/internal/http"
	"github.com/fjod/rocketcart/internal/notify"
	"github.com/fjod/rocketcart/internal/storage"
	"github.com/fjod/rocketcart/internal/tracing"
	"github.com/fjod/rocketcart/pkg/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, "cartd")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	shutdownTracing, err := tracing.Init("cartd", cfg.OTelStdout)
	if err != nil {
		logg.Fatal("failed to init tracing", zap.Error(err))
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logg.Fatal("failed to open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer store.Close()

	notifiers := notify.Multi{notify.NewLogNotifier(logg), notify.ContextNotifier{}}
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(logg, cfg.KafkaNotifyTopic, cfg.KafkaBrokers...)
		defer kn.Close()
		notifiers = append(notifiers, kn)
		logg.Info("publishing notifications to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaNotifyTopic),
		)
	}

	cartStore, err := cart.New(ctx, store, catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout),
		cart.WithKey(cfg.StorageKey),
		cart.WithNotifier(notifiers),
		cart.WithLogger(logg),
	)
	if err != nil {
		logg.Fatal("failed to load cart", zap.Error(err))
	}
	cartStore.Subscribe(func(c domain.Cart) {
		logg.Debug("cart changed", zap.Int("size", c.Size()))
	})

	router := h.NewRouter(h.NewCartHandler(cartStore, cfg.RequestTimeout), logg, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cartd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("cart API starting", zap.String("addr", srv.Addr), zap.String("catalog", cfg.CatalogURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logg.Warn("failed to flush traces", zap.Error(err))
	}

	logg.Info("server exited")
}
