package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/config"
	"github.com/ariefcatur/go-storefront.git/internal/httpx"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/postgres"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/joho/godotenv"
)

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

	// Kafka producers per topic lifecycle
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pCancel := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancel.Start(ctx)
	pRestore := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRestored, 1024)
	pRestore.Start(ctx)

	emitter := &orders.Emitter{
		Placed:        pPlaced,
		StatusChanged: pStatus,
		Cancelled:     pCancel,
		StockRestored: pRestore,
		ServiceName:   cfg.ServiceName,
	}

	// Stores & services
	ledger := &inventory.PgLedger{DB: db}
	cat := &catalog.PgCatalog{DB: db}
	cartSvc := &cart.Service{
		Store:   &cart.PgStore{DB: db},
		Catalog: cat,
		Ledger:  ledger,
		Log:     log,
	}
	orderStore := &orders.PgStore{DB: db}
	checkoutSvc := &checkout.Service{
		Cart:    cartSvc,
		Catalog: cat,
		Ledger:  ledger,
		Orders:  orderStore,
		Redis:   rdb,
		Events:  emitter,
		Log:     log,
	}
	orderSvc := &orders.Service{
		Store:    orderStore,
		Restorer: checkoutSvc,
		Events:   emitter,
		Log:      log,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.CartHandler{Cart: cartSvc}).Register(router)
	(&httpx.OrdersHandler{Checkout: checkoutSvc, Orders: orderSvc, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pPlaced, pStatus, pCancel, pRestore} {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel() // stop producer loop
	for _, p := range []*kafkax.Producer{pPlaced, pStatus, pCancel, pRestore} {
		p.WaitClosed() // drain
	}
}
