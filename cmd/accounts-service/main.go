package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/ElizavetaP/bankapp/internal/accounts/handler"
	"github.com/ElizavetaP/bankapp/internal/accounts/listener"
	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/internal/accounts/service"
	"github.com/ElizavetaP/bankapp/shared/bus"
	"github.com/ElizavetaP/bankapp/shared/config"
	"github.com/ElizavetaP/bankapp/shared/middleware"
	"github.com/ElizavetaP/bankapp/shared/outbox"
	redisClient "github.com/ElizavetaP/bankapp/shared/redis"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

func main() {
	cfg, err := config.LoadAccounts()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Redis connection (event bus + balance cache)
	redis, err := redisClient.NewClient(cfg.RedisAddr, "", 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	eventBus := bus.NewRedisBus(redis.Client, bus.RedisBusConfig{
		Group:    "accounts-service-group",
		Consumer: "accounts-consumer-1",
	})

	// Outbox: saga responses (success and failure) are staged here.
	outboxStore := outbox.NewStore(db)
	publisher := outbox.NewPublisher(outboxStore, eventBus, outbox.PublisherConfig{
		Topics: map[string]string{
			saga.BalanceUpdated:      cfg.Topics.BalanceUpdated,
			saga.BalanceUpdateFailed: cfg.Topics.BalanceUpdateFailed,
		},
		DefaultTopic: cfg.Topics.BalanceUpdated,
		Interval:     cfg.Outbox.Interval,
		Limit:        cfg.Outbox.Limit,
	})

	accounts := repository.NewAccountRepository(db)
	users := repository.NewUserRepository(db)
	cache := repository.NewBalanceCache(redis.Client, 5*time.Minute)

	balanceSvc := service.NewBalanceUpdateService(db, accounts, users, outboxStore, cache)
	accountSvc := service.NewAccountService(accounts, users, cache)
	userSvc := service.NewUserService(users)

	sagaListener := listener.NewSagaListener(balanceSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	userHandler := handler.NewUserHandler(userSvc, []byte(cfg.JWTSecret))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go publisher.Run(ctx)

	go func() {
		if err := eventBus.Subscribe(ctx, cfg.Topics.BalanceUpdateRequested, sagaListener.HandleBalanceUpdateRequest); err != nil {
			log.Printf("Saga subscriber stopped: %v", err)
		}
	}()

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.POST("/api/users", userHandler.Register)
	router.POST("/api/users/login", userHandler.Login)

	authed := router.Group("/api", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	{
		authed.GET("/users/:login", userHandler.GetUser)
		authed.PUT("/users/:login", userHandler.UpdateUser)
		authed.POST("/users/:login/password", userHandler.ChangePassword)
		authed.GET("/accounts", accountHandler.ListAccounts)
		authed.POST("/accounts", accountHandler.CreateAccount)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Accounts service starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
