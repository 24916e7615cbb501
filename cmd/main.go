package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	// Carry incoming trace context through to the order backend.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open session store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer repo.Close()
	log.Info("session store ready", slog.String("driver", cfg.StoreDriver))

	orders := backend.NewClient(backend.Options{
		BaseURL:            cfg.BackendURL,
		Timeout:            cfg.SubmitTimeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		Logger:             log,
	})

	var events interface {
		service.EventPublisher
		Close() error
	} = publisher.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.KafkaTopic, log, cfg.KafkaBrokers...)
		log.Info("publishing order events", slog.String("topic", cfg.KafkaTopic), slog.Any("brokers", cfg.KafkaBrokers))
	}
	defer events.Close()

	policy := pricing.Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               cfg.TaxRate,
	}

	store := service.NewSessionStore(repo, log)
	cartService := service.NewCartService(store, policy, log)
	checkoutService := service.NewCheckoutService(store, policy, cfg.ShippingCountry, log)
	paymentService := service.NewPaymentService(store, orders, events, cfg.SubmitTimeout, log)
	receiptService := service.NewReceiptService(store, orders, log)
	flowService := service.NewFlowService(store)

	cartService.OnChange(func(sessionID string, count int) {
		log.Debug("cart changed", slog.String("session_id", sessionID), slog.Int("count", count))
	})

	r := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(checkoutService, flowService, cfg.RequestTimeout, log),
		Payment:  h.NewPaymentHandler(paymentService, log),
		Receipt:  h.NewReceiptHandler(receiptService, cfg.RequestTimeout, log),
	}, h.RouterOptions{
		Session: h.SessionOptions{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.AppEnv == "prod",
		},
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.SubmitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}

	log.Info("server exited")
}
