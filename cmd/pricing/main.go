// PricingService 主程序
// 功能：期权估值、希腊字母、隐含波动率与历史波动率计算, 合约参考数据管理
// 架构：DDD + CQRS + 事务 Outbox + Kafka
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	contractsapp "github.com/wyfcoding/optionpricing/internal/contracts/application"
	contractsdomain "github.com/wyfcoding/optionpricing/internal/contracts/domain"
	contractsmysql "github.com/wyfcoding/optionpricing/internal/contracts/infrastructure/persistence/mysql"
	contractshttp "github.com/wyfcoding/optionpricing/internal/contracts/interfaces/http"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	pricingmysql "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/mysql"
	pricingredis "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/redis"
	pricinghttp "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
)

func main() {
	boot := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(boot)

	// 1. 加载配置
	configPath := "configs/pricing/config.toml"
	cfg, err := config.Load(configPath)
	if err != nil {
		boot.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		boot.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting PricingService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	// 4. 迁移表结构
	if err := database.AutoMigrate(
		&pricingmysql.PricingResultModel{},
		&pricingmysql.ImpliedVolResultModel{},
		&messaging.OutboxMessage{},
		&contractsdomain.Contract{},
	); err != nil {
		logger.Fatal(ctx, "Failed to run migrations", "error", err)
	}

	// 5. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 6. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 7. 初始化 Kafka 生产者
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Partitions:     cfg.Kafka.Partitions,
		Replication:    cfg.Kafka.Replication,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Kafka producer", "error", err)
	}
	defer producer.Close()

	// 8. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}

	// 9. 初始化仓储与事件发布
	pricingRepo := pricingmysql.NewPricingRepository(database.DB)
	pricingCache := pricingredis.NewPricingCache(redisCache, time.Duration(cfg.Pricing.CacheTTL)*time.Second)
	publisher := messaging.NewOutboxEventPublisher(database.DB, producer, cfg.Kafka.Topic, metricsInstance)
	contractRepo := contractsmysql.NewContractRepository(database.DB)

	// 10. 初始化应用服务
	cmdService := application.NewPricingCommandService(pricingRepo, pricingCache, publisher, metricsInstance, cfg.Pricing)
	queryService := application.NewPricingQueryService(pricingRepo, pricingCache, metricsInstance, cfg.Pricing)
	contractService := contractsapp.NewContractAppService(contractRepo, cmdService, logger.Get())

	// 11. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, metricsInstance, rateLimiter, cmdService, queryService, contractService)

	// 12. 生命周期: HTTP、Outbox relay、Outbox 清理、合约到期扫描、信号
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info(gctx, "Starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		interval := time.Duration(cfg.Pricing.OutboxInterval) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := publisher.ProcessOutboxMessages(gctx, cfg.Pricing.OutboxBatchSize); err != nil {
					logger.Error(gctx, "Outbox relay pass failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := publisher.CleanupProcessedMessages(gctx, time.Now().Add(-24*time.Hour)); err != nil {
					logger.Error(gctx, "Outbox cleanup failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := contractService.ExpireDue(gctx); err != nil {
					logger.Error(gctx, "Contract expiry sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info(gctx, "Shutting down PricingService", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(ctx, "PricingService terminated", "error", err)
	}
	logger.Info(ctx, "PricingService stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	m *metrics.Metrics,
	rateLimiter ratelimit.RateLimiter,
	cmdService *application.PricingCommandService,
	queryService *application.PricingQueryService,
	contractService *contractsapp.ContractAppService,
) *http.Server {
	router := gin.Default()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(m))
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	// 注册路由
	pricingHandler := pricinghttp.NewPricingHandler(cmdService, queryService)
	pricingHandler.RegisterRoutes(&router.RouterGroup)

	contractHandler := contractshttp.NewContractHandler(contractService)
	contractHandler.RegisterRoutes(&router.RouterGroup)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
