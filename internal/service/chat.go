package service

import (
	"time"

	"chatbox/backend/internal/config"
	"chatbox/backend/internal/domain"
	"chatbox/backend/internal/monitoring"
	"chatbox/backend/internal/storage"
)

// ChatService 封装消息信箱的业务操作。
// 字段验证由边界层完成，这里假定输入已通过验证。
type ChatService struct {
	repo    storage.MessageRepository
	cfg     *config.Config
	metrics *monitoring.Metrics
}

// NewChatService 创建消息业务服务。
func NewChatService(repo storage.MessageRepository, cfg *config.Config) *ChatService {
	return &ChatService{repo: repo, cfg: cfg}
}

// SetMetrics 设置监控指标（可选）。
func (s *ChatService) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// DepositInput 定义投递消息所需的输入。
//
// Timeout 来自 JSON 请求体，只有数值类型才会被采用；缺失或非数值时使用
// 配置的默认有效期。调用方传入的零值或负值按字面生效，会得到一条到达即
// 过期的消息。
type DepositInput struct {
	Username string
	Text     string
	Timeout  any
}

// Deposit 投递一条新消息，返回包含已分配 id 的消息。
func (s *ChatService) Deposit(input DepositInput) (*domain.Message, error) {
	now := time.Now().UTC()

	message := &domain.Message{
		Username:  input.Username,
		Text:      input.Text,
		ExpiresAt: now.Add(s.resolveTimeout(input.Timeout)),
		Expired:   false,
		CreatedAt: now,
	}

	if err := s.repo.SaveMessage(message); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MessagesDeposited.Inc()
	}
	return message, nil
}

// resolveTimeout 将请求体中的 timeout 字段解析为有效期。
// JSON 数字解码为 float64；其余类型一律视为未提供。
func (s *ChatService) resolveTimeout(timeout any) time.Duration {
	switch v := timeout.(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	default:
		return s.cfg.Chat.DefaultTimeout
	}
}

// Get 按 id 查询单条消息。无论过期与否都会返回，且不触发读取过期。
func (s *ChatService) Get(id int64) (*domain.Message, error) {
	return s.repo.GetMessage(id)
}

// Retrieve 取走用户名下全部有效消息。
//
// 这是一次破坏性读取：返回的集合在同一逻辑操作内被整体标记为已过期，
// 同一条消息不会被两次成功的 Retrieve 返回。没有有效消息时返回
// storage.ErrMailboxEmpty。
func (s *ChatService) Retrieve(username string) ([]domain.Message, error) {
	messages, err := s.repo.RetrieveMessages(username)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MessagesDelivered.Add(float64(len(messages)))
	}
	return messages, nil
}

// PurgeExpired 清理过期超过保留时长的消息，返回删除数量。
// 后台任务调用，与信箱语义无关。
func (s *ChatService) PurgeExpired() (int, error) {
	if s.cfg.Chat.Retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.cfg.Chat.Retention)
	count, err := s.repo.PurgeExpiredBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil && count > 0 {
		s.metrics.MessagesPurged.Add(float64(count))
	}
	return count, nil
}
