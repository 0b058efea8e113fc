package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"chatbox/backend/internal/storage"
)

// Pinger 支持带上下文连通性检测的依赖（pgx 连接池、Redis 客户端）。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.MessageRepository
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.MessageRepository, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	hc.health.AddLivenessCheck("store", func() error {
		return hc.store.Health()
	})

	return hc
}

// AddPingCheck 注册一个带超时的依赖连通性检查。
func (hc *HealthChecker) AddPingCheck(name string, pinger Pinger) {
	hc.health.AddReadinessCheck(name, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pinger.Ping(ctx)
	})
}

// LiveHandler 返回存活检查处理器
func (hc *HealthChecker) LiveHandler() http.Handler {
	return http.HandlerFunc(hc.health.LiveEndpoint)
}

// ReadyHandler 返回就绪检查处理器
func (hc *HealthChecker) ReadyHandler() http.Handler {
	return http.HandlerFunc(hc.health.ReadyEndpoint)
}
