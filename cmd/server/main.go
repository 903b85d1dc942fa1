package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"portfoliotracker/internal/api"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/database"
	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/kafka"
	"portfoliotracker/internal/logger"
	"portfoliotracker/internal/quotes"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	log.Info().Msg("starting portfolio tracker")

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	var provider quotes.Provider = quotes.NewYahooProvider(cfg.Quotes.BaseURL, cfg.Quotes.Timeout)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		provider = quotes.NewCachedProvider(provider, rdb, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("quote cache enabled")
	}

	tradeEngine := engine.NewTradeEngine(db, provider, log)
	valuation := engine.NewValuationEngine(provider, log)
	replayer := engine.NewReplayer(provider, log)

	var producer *kafka.Producer
	var handlerProducer api.TradePublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)
		defer producer.Close()
		handlerProducer = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("trade event publishing enabled")
	}

	handler := api.NewHandler(db, tradeEngine, valuation, replayer, provider, handlerProducer, log)
	router := api.SetupRoutes(handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewFillsConsumer(cfg.Kafka.Brokers, cfg.Kafka.FillsTopic, cfg.Kafka.GroupID, tradeEngine, db, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("fills consumer stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
