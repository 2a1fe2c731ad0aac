package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/smartcart/product-service/config"
	"github.com/smartcart/product-service/internal/inventory"
	invH "github.com/smartcart/product-service/internal/inventory/handler"
	invListenerPkg "github.com/smartcart/product-service/internal/inventory/listener"
	invPublisherPkg "github.com/smartcart/product-service/internal/inventory/publisher"
	invReconcilerPkg "github.com/smartcart/product-service/internal/inventory/reconciler"
	invRepoPkg "github.com/smartcart/product-service/internal/inventory/repository"
	invUCPkg "github.com/smartcart/product-service/internal/inventory/usecase"
	"github.com/smartcart/product-service/internal/pkg/broker"
	"github.com/smartcart/product-service/internal/pkg/cache"
	"github.com/smartcart/product-service/internal/pkg/database/postgres"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/pkg/memdb"
	"github.com/smartcart/product-service/internal/pkg/middleware"
	"github.com/smartcart/product-service/internal/pkg/response"
	"github.com/smartcart/product-service/internal/pkg/search"
	"github.com/smartcart/product-service/internal/pkg/tracing"
	"github.com/smartcart/product-service/internal/product"
	prodH "github.com/smartcart/product-service/internal/product/handler"
	prodRepoPkg "github.com/smartcart/product-service/internal/product/repository"
	prodUCPkg "github.com/smartcart/product-service/internal/product/usecase"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Setup(ctx, &tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		URLPath:        cfg.Tracing.URLPath,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: prodH.ServiceVersion,
	})
	if err != nil {
		appLogger.Warn("Tracing disabled", zap.Error(err))
	}

	// 4. Durable store and repositories
	var (
		prodRepo product.Repository
		invRepo  inventory.Repository
	)
	switch cfg.Server.StoreDriver {
	case "memory":
		db := memdb.New()
		prodRepo = prodRepoPkg.NewMemoryRepository(db)
		invRepo = invRepoPkg.NewMemoryRepository(db)
		appLogger.Warn("Using in-memory store; data is lost on restart")
	default:
		pgConfig := &postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		}
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(pgConfig); err != nil {
				appLogger.Fatal("Could not migrate database", zap.Error(err))
			}
		}
		db, err := postgres.NewPostgres(pgConfig)
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		prodRepo = prodRepoPkg.NewPGRepository(db, cfg.Postgres.LockTimeout)
		invRepo = invRepoPkg.NewPGRepository(db, cfg.Postgres.LockTimeout)
	}

	// 5. Cache
	var (
		productCache cache.ProductCache
		locker       cache.Locker
	)
	switch cfg.Redis.Driver {
	case "memory":
		productCache = cache.NewMemoryProductCache()
		locker = cache.NewMemoryLocker()
	default:
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		productCache = cache.NewRedisProductCache(redisClient)
		locker = redisClient
	}

	// 6. Elasticsearch
	var index product.SearchIndex
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch, search falls back to the database", zap.Error(err))
		} else if productIndex, err := search.NewProductIndex(ctx, esClient); err != nil {
			appLogger.Warn("Could not prepare products index", zap.Error(err))
		} else {
			index = productIndex
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 7. Kafka producer
	var publisher inventory.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		defer producer.Close()
		publisher = invPublisherPkg.NewKafkaPublisher(producer)
	}

	// 8. Initialize UseCases
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, productCache, index, appLogger, cfg.Redis.CacheTTL)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, productCache, publisher, appLogger)

	// 9. Background workers
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer consumer.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		go invListenerPkg.NewInventoryListener(consumer, invUC, appLogger).Start(ctx)
	}
	reconciler := invReconcilerPkg.New(invRepo, invUC, locker, appLogger, invReconcilerPkg.Config{
		Interval:  cfg.Reconcile.Interval,
		BatchSize: cfg.Reconcile.BatchSize,
	})
	go reconciler.Run(ctx)

	// 10. HTTP server
	app := fiber.New(fiber.Config{
		AppName:               prodH.ServiceName,
		ErrorHandler:          response.ErrorHandler(appLogger),
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestLogger(appLogger), middleware.RequestTimeout(cfg.Server.RequestTimeout))
	invH.NewInventoryHandler(invUC, appLogger).RegisterRoutes(app)
	prodH.NewProductHandler(prodUC, appLogger).RegisterRoutes(app)

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
		if err := app.Listen(listenAddr(cfg.Server.HTTPPort)); err != nil {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 11. gRPC server
	lis, err := net.Listen("tcp", listenAddr(cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.ContextInterceptor(appLogger),
			middleware.TimeoutInterceptor(cfg.Server.RequestTimeout),
		),
	)
	invH.RegisterInventoryServiceServer(grpcServer, invH.NewGRPCHandler(invUC, prodUC, appLogger))
	reflection.Register(grpcServer)

	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		appLogger.Error("tracing shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func listenAddr(port string) string {
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
