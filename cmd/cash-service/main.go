package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/ElizavetaP/bankapp/internal/cash/handler"
	"github.com/ElizavetaP/bankapp/internal/cash/listener"
	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/internal/cash/service"
	"github.com/ElizavetaP/bankapp/shared/bus"
	"github.com/ElizavetaP/bankapp/shared/config"
	"github.com/ElizavetaP/bankapp/shared/middleware"
	"github.com/ElizavetaP/bankapp/shared/outbox"
	redisClient "github.com/ElizavetaP/bankapp/shared/redis"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

func main() {
	cfg, err := config.LoadCash()
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

	// Redis connection (event bus)
	redis, err := redisClient.NewClient(cfg.RedisAddr, "", 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	eventBus := bus.NewRedisBus(redis.Client, bus.RedisBusConfig{
		Group:    "cash-service-group",
		Consumer: "cash-consumer-1",
	})

	// Outbox: every saga request this service emits goes through here.
	outboxStore := outbox.NewStore(db)
	publisher := outbox.NewPublisher(outboxStore, eventBus, outbox.PublisherConfig{
		Topics: map[string]string{
			saga.BalanceUpdateRequested: cfg.Topics.BalanceUpdateRequested,
		},
		DefaultTopic: cfg.Topics.BalanceUpdateRequested,
		Interval:     cfg.Outbox.Interval,
		Limit:        cfg.Outbox.Limit,
	})

	ops := repository.NewOperationRepository(db)
	cashSvc := service.NewCashService(db, ops, outboxStore)
	responses := listener.NewResponseListener(ops)
	cashHandler := handler.NewCashHandler(cashSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go publisher.Run(ctx)

	// One independent subscriber per response topic.
	go func() {
		if err := eventBus.Subscribe(ctx, cfg.Topics.BalanceUpdated, responses.HandleSuccess); err != nil {
			log.Printf("Success subscriber stopped: %v", err)
		}
	}()
	go func() {
		if err := eventBus.Subscribe(ctx, cfg.Topics.BalanceUpdateFailed, responses.HandleFailure); err != nil {
			log.Printf("Failure subscriber stopped: %v", err)
		}
	}()

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/cash", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	{
		api.POST("/deposit", cashHandler.Deposit)
		api.POST("/withdraw", cashHandler.Withdraw)
		api.GET("/operations/:sagaId", cashHandler.GetOperation)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Cash service starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
