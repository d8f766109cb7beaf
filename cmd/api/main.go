package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/cache"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/users"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

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
	log := logger.Named("api")
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", zap.Error(err))
		return 1
	}
	defer db.Close()
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			log.Error("migrate", zap.Error(err))
			return 1
		}
	}

	// Redis
	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect", zap.Error(err))
		return 1
	}
	defer rdb.Close()

	// Kafka producer, one writer for every topic
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.Named("kafka"))
	prod.Start(ctx)

	policy := pricing.Policy{
		TaxRate:               cfg.TaxRate,
		FlatShipping:          pricing.Cents(cfg.ShippingFlatCents),
		FreeShippingThreshold: pricing.Cents(cfg.FreeShippingThresholdCents),
	}
	catalogCache := cache.New(rdb, redisx.PrefixCatalog, cfg.CatalogCacheTTL)

	// Services
	catalogRepo := &catalog.Repo{DB: db}
	catalogSvc := catalog.NewService(catalogRepo, catalogCache, log.Named("catalog"))
	productAdmin := catalog.NewAdmin(catalogRepo, catalogCache, log.Named("catalog-admin"))

	cartStore, err := newCartStore(cfg, rdb)
	if err != nil {
		log.Error("cart store", zap.Error(err))
		return 1
	}
	cartSvc := cart.NewService(cartStore, catalogSvc, policy, log.Named("cart"))

	orderSvc := orders.NewService(&orders.Repo{DB: db}, policy,
		orders.WithIdempotency(orders.RedisIdempotency{RDB: rdb}),
		orders.WithStatusCache(orders.RedisStatusCache{RDB: rdb}),
		orders.WithPublisher(prod, cfg.ServiceName),
		orders.WithLogger(log.Named("orders")),
	)

	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, cfg.ServiceName)
	userSvc := users.NewService(&users.Repo{DB: db}, jwt, auth.NewPasswordHasher(cfg.BcryptCost), log.Named("users"))
	if cfg.AdminEmail != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword); err != nil {
			log.Error("bootstrap admin", zap.Error(err))
			return 1
		}
	}
	dashboard := admin.NewService(&admin.Repo{DB: db}, cfg.LowStockThreshold, log.Named("admin"))

	router := httpx.NewRouter(log.Named("http"), jwt, httpx.Handlers{
		Auth:    &httpx.AuthHandler{Users: userSvc, Log: log},
		Catalog: &httpx.CatalogHandler{Catalog: catalogSvc, Log: log},
		Cart:    &httpx.CartHandler{Cart: cartSvc, Orders: orderSvc, Log: log},
		Orders:  &httpx.OrdersHandler{Orders: orderSvc, Log: log},
		Admin: &httpx.AdminHandler{
			Products:  productAdmin,
			Orders:    orderSvc,
			Users:     userSvc,
			Dashboard: dashboard,
			Log:       log,
		},
	})

	// HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("cart_store", cfg.CartStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			prod.Close() // flush queued events
			prod.WaitClosed()
			return err
		},
	})
	code := <-wait
	log.Info("api stopped", zap.Int("exit_code", code))
	return code
}

func newCartStore(cfg config.Config, rdb redis.Cmdable) (cart.Store, error) {
	switch cfg.CartStore {
	case "redis":
		return cart.NewRedisStore(rdb, cart.DefaultNamespace, cfg.CartTTL), nil
	case "file":
		return cart.NewFileStore(cfg.CartDir, cart.DefaultNamespace)
	case "memory":
		return cart.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown CART_STORE %q", cfg.CartStore)
	}
}
