// The search service: keeps a queryable replica of every auction, updated
// by broker events, and exposes search plus a live bid feed.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/VictorYakushenko/Carsties/internal/auctions"
	"github.com/VictorYakushenko/Carsties/internal/broadcast"
	"github.com/VictorYakushenko/Carsties/internal/broker"
	"github.com/VictorYakushenko/Carsties/internal/handlers"
	"github.com/VictorYakushenko/Carsties/internal/replica"
	"github.com/VictorYakushenko/Carsties/internal/retry"
	"github.com/VictorYakushenko/Carsties/internal/search"
	"github.com/VictorYakushenko/Carsties/pkg/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "search-service")
	cfg := loadConfig()

	replicaStore, err := replica.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer replicaStore.Close()

	natsConn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsConn.Close()

	publisher, err := broker.NewPublisher(natsConn, logger)
	if err != nil {
		logger.Error("failed to set up JetStream", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := replica.NewConsumer(publisher.JetStream(), replicaStore, publisher,
		retry.DefaultDeliveryPolicy(), "search-service", logger)
	if err := consumer.Start(ctx, true); err != nil {
		logger.Error("failed to start event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Stop()

	auctionClient := auctions.NewHTTPClient(cfg.AuctionSvcURL, 10*time.Second)
	go func() {
		if err := replica.Reconcile(ctx, auctionClient, replicaStore,
			retry.DefaultReconcilePolicy(), logger); err != nil {
			logger.Warn("startup reconciliation incomplete", "error", err)
		}
	}()

	// Live bid feed: Redis Pub/Sub in, websocket out.
	feedClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer feedClient.Close()

	manager := broadcast.NewManager(logger)
	go manager.Run()

	subscriber := broadcast.NewSubscriber(feedClient, logger)
	defer subscriber.Close()

	messages := make(chan *broadcast.Message, 256)
	go func() {
		if err := subscriber.Listen(ctx, messages); err != nil && ctx.Err() == nil {
			logger.Error("feed subscriber stopped", "error", err)
		}
	}()
	go func() {
		for msg := range messages {
			manager.Broadcast(msg)
		}
	}()

	searchService := search.New(replicaStore)
	handler := handlers.NewSearchHandler(searchService, logger)
	router := handler.Router()
	broadcast.NewHandler(manager, logger).Register(router)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("search service listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}

type appConfig struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	AuctionSvcURL string
}

func loadConfig() *appConfig {
	return &appConfig{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":7002"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		NatsURL:       config.GetEnv("NATS_URL", "nats://localhost:4222"),
		AuctionSvcURL: config.GetEnv("AUCTION_SVC_URL", "http://localhost:7001"),
	}
}
