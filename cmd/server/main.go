package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/vivushop/gateway"
	"github.com/example/vivushop/pkg/config"
	"github.com/example/vivushop/pkg/discovery"
	"github.com/example/vivushop/pkg/notify"
	"github.com/example/vivushop/pkg/order"
	"github.com/example/vivushop/pkg/payment"
	"github.com/example/vivushop/pkg/repository"
	"github.com/example/vivushop/pkg/store"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting shop server",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// Persistence
	st, err := store.NewMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoRepo.Close(ctx)
	}()

	// Notification actor
	notifier, err := notify.NewService(logger)
	if err != nil {
		logger.Fatal("Failed to start notification service", zap.Error(err))
	}
	defer notifier.Shutdown()

	// Core services
	payClient := payment.NewClient(&cfg.Payment)
	builder := order.NewBuilder(st, payClient, redisRepo, mongoRepo, cfg.Payment.Timeout, logger)
	reconciler := payment.NewReconciler(st, payClient, redisRepo, mongoRepo, notifier, logger)

	gw := gateway.NewGateway(cfg, logger, builder, reconciler)
	gw.SetupRoutes()

	// Service discovery
	ctx := context.Background()
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
	} else {
		defer sd.Close()
		instance := &discovery.ServiceInstance{
			Name: cfg.Server.Name,
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		}
		if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", cfg.Server.Name),
				zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
			defer sd.Deregister(ctx, instance)
		}
	}

	// Ping dependencies
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Service stopped")
}
