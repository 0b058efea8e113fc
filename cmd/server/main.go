package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chatbox/backend/internal/config"
	"chatbox/backend/internal/health"
	"chatbox/backend/internal/logger"
	"chatbox/backend/internal/monitoring"
	"chatbox/backend/internal/service"
	"chatbox/backend/internal/storage"
	"chatbox/backend/internal/storage/memory"
	"chatbox/backend/internal/storage/postgres"
	"chatbox/backend/internal/storage/redis"
	sqlstore "chatbox/backend/internal/storage/sql"
	httptransport "chatbox/backend/internal/transport/http"
)

// main 启动消息信箱 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting chatbox server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.Duration("default_timeout", cfg.Chat.DefaultTimeout),
	)

	// 初始化存储层。连接池随进程创建一次，退出时统一释放。
	var store storage.MessageRepository
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(&cfg.Database)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 初始化监控系统（promauto 自动注册指标）
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// PostgreSQL 时额外维护一个 pgx 连接池，用于就绪检查和连接池指标
	var pgClient *postgres.Client
	if cfg.Database.Type == "postgres" {
		pgClient, err = postgres.New(&cfg.Database, log)
		if err != nil {
			log.Warn("failed to create pgx pool, readiness checks degraded", zap.Error(err))
		} else {
			defer pgClient.Close()
			healthChecker.AddPingCheck("postgres", pgClient)
		}
	}

	// Redis 可选，仅用于跨进程限流计数
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to local rate limiting", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			healthChecker.AddPingCheck("redis", redisClient)
		}
	}

	// 初始化服务层
	chatService := service.NewChatService(store, cfg)
	chatService.SetMetrics(metrics)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:      cfg,
		ChatService: chatService,
		Metrics:     metrics,
		Logger:      log,
		RedisClient: redisClient,
	})

	// 健康检查处理器（用于 Kubernetes 等）
	router.GET("/health/live", gin.WrapH(healthChecker.LiveHandler()))
	router.GET("/health/ready", gin.WrapH(healthChecker.ReadyHandler()))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.HTTPHandler()))

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理长期过期消息 goroutine。
	// 消息过期后仍保留在存储中供按 id 查询，超出保留时长才删除。
	if cfg.Chat.Retention > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(1 * time.Hour)
			defer ticker.Stop()

			log.Info("starting expired message cleanup task",
				zap.Duration("retention", cfg.Chat.Retention),
			)

			for {
				select {
				case <-groupCtx.Done():
					log.Info("cleanup task stopped")
					return nil
				case <-ticker.C:
					count, err := chatService.PurgeExpired()
					if err != nil {
						log.Error("failed to purge expired messages", zap.Error(err))
					} else if count > 0 {
						log.Info("expired messages purged", zap.Int("count", count))
					}
				}
			}
		})
	}

	// 定期上报连接池指标 goroutine
	if pgClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					stats := pgClient.Stats()
					metrics.RecordDBPoolStats(int(stats.AcquiredConns()), int(stats.IdleConns()))
				}
			}
		})
	}

	// 等待退出信号后优雅关闭
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
