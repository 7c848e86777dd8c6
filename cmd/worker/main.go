package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelic/skyfare/config"
	"github.com/avelic/skyfare/internal/cache"
	"github.com/avelic/skyfare/internal/email"
	"github.com/avelic/skyfare/internal/kafka"
	"github.com/avelic/skyfare/internal/logger"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/avelic/skyfare/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Services.FlightsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	airlineRepo := repository.NewAirlineRepository(pool)
	flightService := flights.NewFlightService(
		flightRepo,
		airlineRepo,
		redisCache,
		log,
		flights.WithProducer(producer, cfg.Kafka.EventsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.NotificationsTopic, log)
	defer consumer.Close()

	sender := email.NewSender(cfg.Mail, log)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.WithError(err).Warn("skipping undecodable notification")
				return nil
			}
			return sender.Send(ctx, event)
		}); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("consumer stopped")
		}
	}()

	interval := time.Duration(cfg.Watcher.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			moved, err := flightService.AdvanceStatuses(ctx, time.Now().UTC())
			if err != nil {
				log.WithError(err).Error("advance flight statuses")
				continue
			}
			if moved > 0 {
				log.WithField("flights", moved).Info("advanced flight statuses")
			}
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		}
	}
}
