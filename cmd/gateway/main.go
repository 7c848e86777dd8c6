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
	"github.com/avelic/skyfare/internal/logger"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/avelic/skyfare/internal/service/auth"
	"github.com/avelic/skyfare/internal/service/users"
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

	userRepo := repository.NewUserRepository(pool)
	authService := auth.NewAuthService(
		userRepo,
		redisCache,
		log,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		int64(cfg.Auth.LockoutMaxFailures),
		time.Duration(cfg.Auth.LockoutTTLMinutes)*time.Minute,
	)
	userService := users.NewUserService(userRepo)
	flightsClient := clients.NewFlightsClient(cfg.Services.FlightServiceURL)

	router := gin.Default()
	jwtKey := []byte(cfg.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	api.NewAuthHandler(authService).Register(v1.Group("/auth"))

	userHandler := api.NewUserHandler(userService)
	userHandler.Register(v1.Group("/users"), jwtKey)
	userHandler.RegisterInternal(router.Group("/internal"))

	api.NewProxyHandler(flightsClient, log).Register(v1, jwtKey)

	if err := bootstrap.Run(ctx, cfg.GatewayHTTP.Address, router, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
