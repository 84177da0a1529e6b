package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/identity-platform/internal/authz"
	"github.com/iliyamo/identity-platform/internal/cache"
	"github.com/iliyamo/identity-platform/internal/config"
	"github.com/iliyamo/identity-platform/internal/database"
	"github.com/iliyamo/identity-platform/internal/handler"
	"github.com/iliyamo/identity-platform/internal/queue"
	"github.com/iliyamo/identity-platform/internal/repository"
	"github.com/iliyamo/identity-platform/internal/router"
	"github.com/iliyamo/identity-platform/internal/service"
	"github.com/iliyamo/identity-platform/internal/token"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// Local development reads a .env file; in production the variables
	// come from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	// Store, cache and broker handles are constructed once here and
	// injected into every component; a failure of any of them refuses
	// startup.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.SeedCatalog(ctx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("seed permission catalog")
	}
	cancel()

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}

	tokens, err := token.New(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		EmailSecret:   cfg.EmailTokenSecret,
		AccessTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		EmailTTL:      time.Duration(cfg.EmailTTLHours) * time.Hour,
	})
	if err != nil {
		log.WithError(err).Fatal("build token service")
	}

	store := repository.NewStore(db)
	permCache := cache.NewPermissionCache(redisClient)
	sessions := cache.NewSessionStore(redisClient, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
	engine := authz.New(permCache, log)
	publisher := queue.NewAMQPPublisher(cfg.AMQPURL, log)
	requester := queue.NewAMQPRequester(cfg.AMQPURL)

	authSvc := service.NewAuthService(store, sessions, tokens, publisher, cfg.BcryptCost, log)
	roleSvc := service.NewRoleService(store, permCache, log)

	// Broker-triggered seeding migrations run for the life of the
	// process; the consumer acks on success and rejects without
	// requeue on failure.
	go queue.StartSeedConsumer(cfg.AMQPURL, func(ctx context.Context, task string) error {
		return database.SeedTask(ctx, db, task)
	}, log)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, requester), tokens)
	router.RegisterRoles(e, handler.NewRoleHandler(roleSvc), tokens, engine)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
