package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appInventory "github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/marketplace/app/internal/application/order"
	appPayment "github.com/Zhima-Mochi/marketplace/app/internal/application/payment"
	appReview "github.com/Zhima-Mochi/marketplace/app/internal/application/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/config"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/id"
	kafkapub "github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/memory"
	mongostore "github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/mongo"
	infraobs "github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/postgres"
	redisstore "github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/marketplace/app/internal/presentation/http"
)

const startupTimeout = 15 * time.Second

type repositories struct {
	products product.Repository
	orders   order.Repository
	payments payment.Repository
	reviews  review.Repository
}

// closers run in reverse registration order on shutdown.
type closers []func(context.Context) error

func (c *closers) add(fn func(context.Context) error) { *c = append(*c, fn) }

func (c closers) closeAll(ctx context.Context, logger *zap.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](ctx); err != nil {
			logger.Error("resource_close_error", zap.Error(err))
		}
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Server.Name,
		Env:     cfg.Server.Env,
		Level:   cfg.Log.Level,
		LogFile: cfg.Log.File,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.System(baseLogger)

	shutdownTracing := telemetry.Setup(telemetry.Options{
		ServiceName: cfg.Server.Name,
		Environment: cfg.Server.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})

	logger := zaplogger.Wrap(baseLogger)
	tel := infraobs.NewMarketplace(oteltrace.New(cfg.Server.Name), logger, prometrics.New("", ""))

	var resources closers
	resources.add(shutdownTracing)

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	repos, err := openRepositories(startCtx, cfg, &resources)
	if err != nil {
		cancelStart()
		systemLogger.Fatal("storage_open_error", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	guard := openChargeGuard(cfg, &resources, systemLogger)
	trail, err := openAuditTrail(startCtx, cfg, &resources)
	cancelStart()
	if err != nil {
		systemLogger.Fatal("audit_trail_open_error", zap.Error(err))
	}

	// Events fan out synchronously after each committed change; Kafka is one more subscriber.
	bus := outbox.NewBus(logger)
	if cfg.Kafka.Enabled() {
		publisher := kafkapub.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Server.Name)
		bus.Subscribe(outbox.AllEvents, publisher.Handle)
		resources.add(func(context.Context) error { return publisher.Close() })
		systemLogger.Info("kafka_publisher_enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	ids := id.New()
	gw := gateway.NewSimulated(gateway.Options{
		MerchantID:  cfg.Gateway.MerchantID,
		SuccessRate: cfg.Gateway.SuccessRate,
		Latency:     cfg.Gateway.Latency,
	})

	ledger := appInventory.NewLedger(repos.products, tel)
	projector := storeview.NewProjector(repos.orders, repos.payments, repos.reviews, repos.products, cfg.StoreView.LowStockThreshold, tel)
	handler := httppresentation.NewHandler(httppresentation.Services{
		Orders:            appOrder.NewService(repos.orders, repos.products, ledger, ids, bus, trail, tel),
		Payments:          appPayment.NewService(repos.orders, repos.payments, gw, guard, projector, ids, bus, trail, tel),
		Catalog:           appInventory.NewCatalog(repos.products, ids, tel),
		Reviews:           appReview.NewService(repos.reviews, repos.products, repos.orders, ids, tel),
		Store:             projector,
		LowStockThreshold: cfg.StoreView.LowStockThreshold,
		Metrics:           promhttp.Handler(),
	}, logger, tel)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.Float64("gateway_success_rate", gw.SuccessRate()),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	resources.closeAll(shutdownCtx, systemLogger)
}

func openRepositories(ctx context.Context, cfg *config.Config, resources *closers) (repositories, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		products := memory.NewProductRepository()
		return repositories{
			products: products,
			orders:   memory.NewOrderRepository(products),
			payments: memory.NewPaymentRepository(),
			reviews:  memory.NewReviewRepository(),
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, postgres.PoolOptions{
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	})
	if err != nil {
		return repositories{}, err
	}
	resources.add(func(context.Context) error { pool.Close(); return nil })
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return repositories{}, err
		}
	}
	return repositories{
		products: postgres.NewProductRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		payments: postgres.NewPaymentRepository(pool),
		reviews:  postgres.NewReviewRepository(pool),
	}, nil
}

// openChargeGuard shares charge markers through Redis when configured. The in-memory guard
// only protects a single instance.
func openChargeGuard(cfg *config.Config, resources *closers, logger *zap.Logger) appPayment.ChargeGuard {
	if !cfg.Redis.Enabled() {
		logger.Warn("charge_guard_in_memory")
		return memory.NewChargeGuard()
	}
	rdb := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Timeout)
	resources.add(func(context.Context) error { return rdb.Close() })
	return redisstore.NewChargeGuard(rdb, cfg.Redis.ChargeTTL)
}

func openAuditTrail(ctx context.Context, cfg *config.Config, resources *closers) (audit.Trail, error) {
	if !cfg.MongoDB.Enabled() {
		return memory.NewAuditTrail(), nil
	}
	client, err := mongostore.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, err
	}
	resources.add(client.Close)
	trail := mongostore.NewAuditTrail(client, cfg.MongoDB.Collection)
	if err := trail.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return trail, nil
}
