package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chatbox/backend/internal/config"
	"chatbox/backend/internal/domain"
	"chatbox/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 和 PostgreSQL）
type Store struct {
	db *gorm.DB
}

// NewStore 根据数据库配置创建存储实例。
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewStoreWithDialector(postgres.Open(cfg.DSN), cfg)
	case "mysql":
		return NewStoreWithDialector(mysql.Open(cfg.DSN), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
func NewStoreWithDialector(dialector gorm.Dialector, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池。连接池大小限制了同时在途的存储操作数量。
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(&domain.Message{})
}

// SaveMessage 插入一条新消息，成功后回填自增 id。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.db.Create(message).Error
}

// GetMessage 按主键查询消息。无论是否过期都会返回，且不改变过期状态。
func (s *Store) GetMessage(id int64) (*domain.Message, error) {
	var message domain.Message
	err := s.db.First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// RetrieveMessages 在单个事务内完成选取与批量标记过期。
//
// 行级锁（SELECT ... FOR UPDATE）保证同一用户名的并发调用不会选中重叠的
// 行集合；批量更新使用参数化的 id 列表，只作用于本次选中的行，期间新插入
// 的消息不受影响。事务中任一步失败则整体回滚，不会留下部分标记的状态。
func (s *Store) RetrieveMessages(username string) ([]domain.Message, error) {
	var results []domain.Message

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var messages []domain.Message
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ? AND expired = ? AND expires_at > ?", username, false, time.Now().UTC()).
			Order("id ASC").
			Find(&messages).Error
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			return storage.ErrMailboxEmpty
		}

		ids := make([]int64, 0, len(messages))
		for i := range messages {
			ids = append(ids, messages[i].ID)
		}

		if err := tx.Model(&domain.Message{}).
			Where("id IN ?", ids).
			Update("expired", true).Error; err != nil {
			return err
		}

		results = messages
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PurgeExpiredBefore 删除过期时间早于 cutoff 的消息，返回删除数量。
func (s *Store) PurgeExpiredBefore(cutoff time.Time) (int, error) {
	result := s.db.Where("expires_at < ?", cutoff).Delete(&domain.Message{})
	return int(result.RowsAffected), result.Error
}

// Health 检查数据库连接是否可用。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close 关闭数据库连接池。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
