package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelic/skyfare/api"
	"github.com/avelic/skyfare/config"
	"github.com/avelic/skyfare/internal/bootstrap"
	"github.com/avelic/skyfare/internal/cache"
	"github.com/avelic/skyfare/internal/clients"
	"github.com/avelic/skyfare/internal/kafka"
	"github.com/avelic/skyfare/internal/logger"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/avelic/skyfare/internal/service/airlines"
	"github.com/avelic/skyfare/internal/service/flights"
	"github.com/avelic/skyfare/internal/service/purchase"
	"github.com/avelic/skyfare/internal/service/ratings"
	"github.com/avelic/skyfare/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
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

	hub := ws.NewHub(log)
	go hub.Run()

	ledger := clients.NewLedgerClient(cfg.Services.GatewayURL)

	flightRepo := repository.NewFlightRepository(pool)
	purchaseRepo := repository.NewPurchaseRepository(pool)
	airlineRepo := repository.NewAirlineRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)

	flightService := flights.NewFlightService(
		flightRepo,
		airlineRepo,
		redisCache,
		log,
		flights.WithProducer(producer, cfg.Kafka.EventsTopic),
		flights.WithBroadcaster(hub),
	)
	purchaseService := purchase.NewPurchaseService(
		purchaseRepo,
		flightRepo,
		ledger,
		log,
		cfg.Settlement.Delay(),
		cfg.Settlement.Workers,
		cfg.Settlement.QueueCapacity,
		purchase.WithProducer(producer, cfg.Kafka.EventsTopic, cfg.Kafka.NotificationsTopic),
		purchase.WithBroadcaster(hub),
	)
	airlineService := airlines.NewAirlineService(airlineRepo)
	ratingService := ratings.NewRatingService(ratingRepo, flightRepo)

	go purchaseService.RunSettlements(ctx)

	router := gin.Default()
	router.GET("/ws", func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	})

	jwtKey := []byte(cfg.Auth.JWTSecret)
	v1 := router.Group("/api/v1")

	flightsGroup := v1.Group("/flights")
	api.NewFlightHandler(flightService, purchaseService).Register(flightsGroup, jwtKey)
	api.NewRatingHandler(ratingService).Register(flightsGroup, jwtKey)
	api.NewAirlineHandler(airlineService).Register(v1.Group("/airlines"), jwtKey)
	api.NewPurchaseHandler(purchaseService).Register(v1)

	if err := bootstrap.Run(ctx, cfg.FlightHTTP.Address, router, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
