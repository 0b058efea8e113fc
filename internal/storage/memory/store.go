package memory

import (
	"sort"
	"sync"
	"time"

	"chatbox/backend/internal/domain"
	"chatbox/backend/internal/storage"
)

// Store 内存存储实现，用于开发环境和单元测试。
// 互斥锁保证同一用户名的并发 Retrieve 不会返回重叠的消息集合。
type Store struct {
	mu       sync.Mutex
	messages map[int64]*domain.Message
	nextID   int64
}

// NewStore 创建内存存储实例。
func NewStore() *Store {
	return &Store{
		messages: make(map[int64]*domain.Message),
	}
}

// SaveMessage 保存消息并分配单调递增的 id。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	message.ID = s.nextID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	stored := *message
	s.messages[message.ID] = &stored
	return nil
}

// GetMessage 按 id 查询消息，不受过期状态影响，也不改变过期状态。
func (s *Store) GetMessage(id int64) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}

	copied := *message
	return &copied, nil
}

// RetrieveMessages 返回用户名下全部有效消息（按 id 升序），并在同一临界区内
// 将返回的集合整体标记为已过期。没有有效消息时返回 ErrMailboxEmpty。
func (s *Store) RetrieveMessages(username string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var selected []*domain.Message
	for _, message := range s.messages {
		if message.Username == username && message.Valid(now) {
			selected = append(selected, message)
		}
	}

	if len(selected) == 0 {
		return nil, storage.ErrMailboxEmpty
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })

	results := make([]domain.Message, 0, len(selected))
	for _, message := range selected {
		results = append(results, *message)
		message.Expired = true
	}
	return results, nil
}

// PurgeExpiredBefore 删除过期时间早于 cutoff 且已失效的消息，返回删除数量。
func (s *Store) PurgeExpiredBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, message := range s.messages {
		if message.ExpiresAt.Before(cutoff) {
			delete(s.messages, id)
			count++
		}
	}
	return count, nil
}

// Health 检查存储可用性。
func (s *Store) Health() error {
	return nil
}

// Close 关闭存储。
func (s *Store) Close() error {
	return nil
}
