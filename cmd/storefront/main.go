package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"techstore/internal/api"
	"techstore/internal/catalog"
	"techstore/internal/checkout"
	"techstore/internal/config"
	"techstore/internal/customer"
	"techstore/internal/database/migrations"
	"techstore/internal/inventory"
	kafkapkg "techstore/internal/kafka"
	"techstore/internal/logger"
	"techstore/internal/notification"
	"techstore/internal/order"
	"techstore/internal/order/storage"
	"techstore/internal/payment/qr"
	"techstore/internal/payment/session"
	"techstore/internal/preorder"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", "Failed to connect to Postgres: "+err.Error())
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	log.Info("DATABASE", "Connected to PostgreSQL")

	// --- Migrations ---
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
	if err := runner.Up(); err != nil {
		log.Fatal("DATABASE", "Migrations failed: "+err.Error())
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
	}
	defer redisClient.Close()
	log.Info("REDIS", "Connected to Redis at "+cfg.Redis.Addr)

	// --- Kafka ---
	var producer *kafkapkg.Producer
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.OrderEvents, cfg.Kafka.Topics.PreOrderEvents}
		if err := kafkapkg.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", "Topic creation failed, continuing: "+err.Error())
		}
		producer = kafkapkg.NewProducer(cfg.Kafka.Brokers,
			cfg.Kafka.Topics.OrderEvents, cfg.Kafka.Topics.PreOrderEvents, log)
		defer producer.Close()
		log.Info("KAFKA", "Event producer ready")
	} else {
		log.Info("KAFKA", "Event streaming disabled")
	}

	// --- Services ---
	cancellations, err := storage.NewCancellationStoreWithDB(sqldb, log)
	if err != nil {
		log.Fatal("DATABASE", "Cancellation store init failed: "+err.Error())
	}

	ledger := inventory.NewLedger(log)
	notifications := notification.NewService(bunDB, log)
	customers := customer.NewService(bunDB, log)
	catalogSvc := catalog.NewService(bunDB)

	// Interface parameters reject typed-nil producers, so wire explicitly.
	var orderEvents order.EventPublisher
	var preOrderEvents preorder.EventPublisher
	if producer != nil {
		orderEvents = producer
		preOrderEvents = producer
	}

	orders := order.NewService(bunDB, ledger, cancellations, notifications, orderEvents, log)
	preOrders := preorder.NewService(bunDB, orders, notifications, preOrderEvents, log)

	sessions := session.NewStore(redisClient, cfg.Payment.SessionTTL, cfg.Payment.SessionRetention, log)
	qrGen := qr.NewGenerator(cfg.Payment)
	checkoutSvc := checkout.NewService(sessions, qrGen, orders, preOrders, customers, log)

	handler := api.NewHandler(orders, preOrders, checkoutSvc, catalogSvc, customers, notifications, cancellations, log)
	router := api.Router(handler, cfg.Auth.JWTSecret)

	// --- Session GC ---
	gcCtx, gcCancel := context.WithCancel(ctx)
	defer gcCancel()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gcCtx.Done():
				return
			case <-ticker.C:
				if _, err := sessions.CleanupExpired(gcCtx); err != nil {
					log.Error("PAYMENT", "Session cleanup failed: "+err.Error())
				}
			}
		}
	}()

	// --- HTTP server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Storefront running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "HTTP server error: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", "Forced shutdown: "+err.Error())
	}
	log.Info("SERVER", "Server exited gracefully")
}
