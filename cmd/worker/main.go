package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"contentgate/api/internal/cache"
	"contentgate/api/internal/config"
	"contentgate/api/internal/log"
	"contentgate/api/internal/mailer"
	"contentgate/api/internal/queue"
	"contentgate/api/internal/tasks"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger := log.NewWorker(cfg.Environment, cfg.Logging.Level)

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	smtp, err := mailer.NewSMTPMailer(cfg.Mail)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailer init failed")
	}

	processor := tasks.NewProcessor(smtp, logger)
	consumer := queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:            cfg.Queue.Stream,
		Group:             cfg.Queue.Group,
		Consumer:          cfg.Queue.Consumer,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		ClaimInterval:     cfg.Queue.ClaimInterval,
	}, logger, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
