package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/config"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/paymentsync"
	"github.com/ariefcatur/go-storefront.git/internal/postgres"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/joho/godotenv"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer untuk event lifecycle yang dipicu perubahan payment
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pRestore := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRestored, 1024)
	pRestore.Start(ctx)

	emitter := &orders.Emitter{
		StatusChanged: pStatus,
		StockRestored: pRestore,
		ServiceName:   cfg.ServiceName + "-paymentsync",
	}

	orderStore := &orders.PgStore{DB: db}
	checkoutSvc := &checkout.Service{
		Ledger: &inventory.PgLedger{DB: db},
		Orders: orderStore,
		Events: emitter,
		Log:    log,
	}
	orderSvc := &orders.Service{
		Store:    orderStore,
		Restorer: checkoutSvc,
		Events:   emitter,
		Log:      log,
	}

	svc := &paymentsync.Service{
		Orders:      orderSvc,
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-paymentsync",
		Log:         log,
	}

	group := getenv("PAYMENTSYNC_GROUP", "paymentsync-svc")
	workers := mustAtoi(os.Getenv("PAYMENTSYNC_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentStatusChanged, workers)

	go func() {
		log.Info("paymentsync consumer started",
			"group", group, "topic", orders.TopicPaymentStatusChanged, "workers", workers)
		if err := cons.Start(ctx, svc.HandlePaymentStatusChanged); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pStatus.Close()
	pRestore.Close()
	pStatus.WaitClosed()
	pRestore.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
