package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cache"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(config.Load()))
}

func run(cfg config.Config) int {
	logger, err := logx.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	log := logger.Named("inventory")
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect", zap.Error(err))
		return 1
	}
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.Named("kafka"))
	prod.Start(ctx)

	svc := &inventory.Service{
		Redis:       rdb,
		Catalog:     cache.New(rdb, redisx.PrefixCatalog, cfg.CatalogCacheTTL),
		Publisher:   prod,
		ServiceName: cfg.ServiceName + "-inventory",
		Threshold:   cfg.LowStockThreshold,
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicOrderPlaced, cfg.InventoryWorkers, log.Named("consumer"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("consumer started",
			zap.String("group", cfg.InventoryGroup),
			zap.String("topic", orders.TopicOrderPlaced),
			zap.Int("workers", cfg.InventoryWorkers))
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Error("consumer exit", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), 10*time.Second, map[string]gfshutdown.Operation{
		"consumer": func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			prod.WaitClosed()
			return nil
		},
	})
	code := <-wait
	log.Info("inventory stopped", zap.Int("exit_code", code))
	return code
}
