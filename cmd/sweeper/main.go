package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tixgate/internal/cache"
	"tixgate/internal/config"
	"tixgate/internal/database"
	"tixgate/internal/jobs"
	"tixgate/internal/locks"
	"tixgate/internal/logger"
	"tixgate/internal/messaging"
	"tixgate/internal/repository"
	"tixgate/internal/service"
)

// Standalone sweeper process. The API server runs its own sweeper too; both
// can run at once, since every reclaim is a conditional state flip.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	redisClient, err := locks.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	lockStore := locks.NewStore(redisClient, cfg.ReservationWindow)
	seatMaps := cache.NewSeatMapCache(redisClient)
	repos := repository.NewRepositories(db)

	orderService := service.NewOrderService(db, repos.Events, repos.Zones, repos.Bookings,
		repos.Orders, repos.Tickets, lockStore, seatMaps, natsClient)

	sweeper := jobs.NewSweeper(repos.Bookings, repos.Orders, orderService, lockStore, natsClient,
		cfg.OrderTimeout, cfg.SweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	slog.Info("Sweeper started", "interval", cfg.SweepInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down sweeper...")
	sweeper.Stop()
	cancel()

	natsClient.Close()
	if err := db.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}

	slog.Info("Sweeper stopped")
}
