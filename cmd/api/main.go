package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/safar/go-bookstore/internal/checkout"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/httpapi"
	"github.com/safar/go-bookstore/internal/loyalty"
	"github.com/safar/go-bookstore/internal/metrics"
	"github.com/safar/go-bookstore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	checkoutStore := store.NewCheckoutStore(db, store.CheckoutStoreOptions{
		MaxRetries: cfg.Checkout.MaxRetries,
		LockNoWait: cfg.Checkout.LockNoWait,
		EventTopic: cfg.Events.KafkaTopic,
		OnRetry:    m.ObserveRetry,
	})
	svc := checkout.NewService(checkoutStore, checkout.Options{
		AnonymousPhone: cfg.Checkout.AnonymousPhone,
		AnonymousName:  cfg.Checkout.AnonymousName,
		RankNames: loyalty.Names{
			Low:  cfg.Checkout.RankTierLow,
			Mid:  cfg.Checkout.RankTierMid,
			High: cfg.Checkout.RankTierHigh,
		},
		Recorder: m,
	})

	kafkaClient := events.NewKafkaClient(cfg.Events.KafkaBrokers)
	if kafkaClient.Enabled() {
		writer := kafkaClient.NewWriter()
		defer writer.Close()

		relay := events.NewRelay(db, writer, cfg.Events.PollInterval, cfg.Events.BatchSize)
		go relay.Run(ctx)
		log.Printf("Outbox relay publishing to %v", cfg.Events.KafkaBrokers)
	} else {
		log.Printf("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Checkout:     svc,
		Reader:       store.NewReader(db),
		Metrics:      m,
		JWTSecret:    []byte(cfg.Auth.JWTSecret),
		AllowOrigins: cfg.Server.CORSAllowOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
