package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// ChatConfig 定义消息信箱的核心业务配置
type ChatConfig struct {
	DefaultTimeout time.Duration // 未提供超时参数时的默认消息有效期，默认 60 秒
	Retention      time.Duration // 已过期消息的保留时长，后台任务按此清理，0 表示不清理
	Messages       MessageTexts  // 对外提示文案
}

// MessageTexts 定义验证失败和未找到时返回给调用方的提示文案
type MessageTexts struct {
	UsernameRequired   string // 用户名为空
	UsernameWhitespace string // 用户名包含空白字符
	TextRequired       string // 消息内容为空
	IDType             string // id 不是整数
	NoMessageFound     string // 按 id 查询不到消息
	NoMailboxMessages  string // 用户名下没有有效消息
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 服务配置（仅用于限流计数，可选）
type RedisConfig struct {
	Address  string // Redis 服务地址，留空禁用
	Password string // Redis 认证密码
	DB       int    // Redis 数据库编号
}

// RateLimitConfig 定义边界层限流配置
type RateLimitConfig struct {
	Enabled  bool          // 是否启用限流
	Requests int           // 窗口内允许的请求数
	Window   time.Duration // 限流窗口时长
}

// Config 是系统核心配置的根结构体
type Config struct {
	Server    ServerConfig
	Chat      ChatConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（前缀 CHATBOX_，如 CHATBOX_SERVER_PORT）
//  2. .env 文件（如果存在）
//  3. 默认值
func Load() (*Config, error) {
	// .env 文件是可选的，加载失败静默忽略
	loadEnvFile()

	viper.SetEnvPrefix("chatbox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("chat.default_timeout", "60s")
	viper.SetDefault("chat.retention", "24h")
	viper.SetDefault("chat.msg_username_required", "username must be at least 1 character")
	viper.SetDefault("chat.msg_username_whitespace", "username must not contain whitespace")
	viper.SetDefault("chat.msg_text_required", "text must be at least 1 character")
	viper.SetDefault("chat.msg_id_type", "id must be an integer")
	viper.SetDefault("chat.msg_no_message_found", "no message found")
	viper.SetDefault("chat.msg_no_mailbox_messages", "no messages found")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.enabled", false)
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")

	defaultTimeout, err := time.ParseDuration(viper.GetString("chat.default_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid chat.default_timeout: %w", err)
	}
	if defaultTimeout <= 0 {
		return nil, fmt.Errorf("chat.default_timeout must be positive")
	}

	retention, err := time.ParseDuration(viper.GetString("chat.retention"))
	if err != nil {
		return nil, fmt.Errorf("invalid chat.retention: %w", err)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	rateWindow, err := time.ParseDuration(viper.GetString("ratelimit.window"))
	if err != nil {
		rateWindow = time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Chat: ChatConfig{
			DefaultTimeout: defaultTimeout,
			Retention:      retention,
			Messages: MessageTexts{
				UsernameRequired:   viper.GetString("chat.msg_username_required"),
				UsernameWhitespace: viper.GetString("chat.msg_username_whitespace"),
				TextRequired:       viper.GetString("chat.msg_text_required"),
				IDType:             viper.GetString("chat.msg_id_type"),
				NoMessageFound:     viper.GetString("chat.msg_no_message_found"),
				NoMailboxMessages:  viper.GetString("chat.msg_no_mailbox_messages"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  viper.GetBool("ratelimit.enabled"),
			Requests: viper.GetInt("ratelimit.requests"),
			Window:   rateWindow,
		},
	}

	if cfg.Database.Type != "" && cfg.Database.Type != "mysql" && cfg.Database.Type != "postgres" {
		return nil, fmt.Errorf("unsupported database.type: %q", cfg.Database.Type)
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
