package main // Activity worker: consumes marketplace events and logs them

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/config"
	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.RabbitURL == "" {
		log.Fatal("RABBITMQ_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(queue.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: queue.Exchange,
		Queue:    queue.ActivityQueue,
	}, log.Named("consumer"))

	log.Info("worker started", zap.String("queue", queue.ActivityQueue))
	if err := consumer.Run(ctx, queue.ActivityLog(log.Named("activity"))); err != nil {
		log.Error("worker stopped", zap.Error(err))
	}
	log.Info("bye")
}
