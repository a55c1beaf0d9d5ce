package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopd/shopd/internal/audit"
	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/config"
	"github.com/shopd/shopd/internal/httpx"
	kafkax "github.com/shopd/shopd/internal/kafka"
	"github.com/shopd/shopd/internal/orders"
	"github.com/shopd/shopd/internal/postgres"
	"github.com/shopd/shopd/internal/redisx"
	"github.com/shopd/shopd/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start(ctx)

	// Stores & services
	userRepo := &users.Repo{DB: db}
	productRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	auditRepo := &audit.Repo{DB: db}

	userSvc := users.NewService(userRepo, auditRepo, logger)
	orderSvc := orders.NewService(userRepo, productRepo, orderRepo, prod, logger, cfg.ServiceName)

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Svc: orderSvc, Redis: rdb}).Register(router)
	(&httpx.ProductsHandler{Repo: productRepo}).Register(router)
	(&httpx.AuthHandler{Svc: userSvc}).Register(router)
	(&httpx.LogsHandler{Repo: auditRepo}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // stop accepting, flush remaining messages
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
