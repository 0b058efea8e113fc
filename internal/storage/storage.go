package storage

import (
	"errors"
	"time"

	"chatbox/backend/internal/domain"
)

var (
	// ErrMessageNotFound 按 id 查询不到消息
	ErrMessageNotFound = errors.New("message not found")
	// ErrMailboxEmpty 用户名下没有任何有效消息
	ErrMailboxEmpty = errors.New("no valid messages for username")
)

// MessageRepository 定义消息数据存取操作。
//
// RetrieveMessages 是破坏性读取：返回的消息集合在同一逻辑操作内被整体标记
// 为已过期。对同一用户名的并发调用不会返回重叠的消息集合。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	GetMessage(id int64) (*domain.Message, error)
	RetrieveMessages(username string) ([]domain.Message, error)
	PurgeExpiredBefore(cutoff time.Time) (int, error) // 清理早于 cutoff 过期的消息，返回删除数量
	Health() error
	Close() error
}
