package httptransport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatbox/backend/internal/config"
	"chatbox/backend/internal/domain"
	"chatbox/backend/internal/middleware"
	"chatbox/backend/internal/monitoring"
	"chatbox/backend/internal/service"
	"chatbox/backend/internal/storage"
	"chatbox/backend/internal/storage/redis"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	chats     *service.ChatService
	validator *domain.ChatValidator
	msgs      config.MessageTexts
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config      *config.Config
	ChatService *service.ChatService
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
	RedisClient *redis.Client // 可选，存在时限流计数走 Redis
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 限流：优先 Redis 共享计数，未配置时退化为进程内限流
	if deps.Config.RateLimit.Enabled {
		rl := deps.Config.RateLimit
		if deps.RedisClient != nil {
			router.Use(middleware.RateLimitByIP(deps.RedisClient, deps.Metrics, deps.Logger, rl.Requests, rl.Window))
		} else {
			router.Use(middleware.LocalRateLimitByIP(deps.Metrics, rl.Requests, rl.Window))
		}
	}

	handler := &Handler{
		chats: deps.ChatService,
		validator: domain.NewChatValidator(domain.ValidationMessages{
			UsernameRequired:   deps.Config.Chat.Messages.UsernameRequired,
			UsernameWhitespace: deps.Config.Chat.Messages.UsernameWhitespace,
			TextRequired:       deps.Config.Chat.Messages.TextRequired,
			IDType:             deps.Config.Chat.Messages.IDType,
		}),
		msgs: deps.Config.Chat.Messages,
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ========== Chat Routes ==========
	router.POST("/chat", handler.deposit)
	router.GET("/chat/:id", handler.getMessage)

	// ========== Chats Routes ==========
	// 不带用户名的请求永远是 422，而不是 404
	router.GET("/chats", handler.missingUsername)
	router.GET("/chats/:username", handler.retrieveMailbox)

	return router
}

type depositRequest struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Timeout  any    `json:"timeout"`
}

type depositResponse struct {
	ID int64 `json:"id"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"createdAt"`
}

type mailboxResponse struct {
	Items []messageResponse `json:"items"`
	Count int               `json:"count"`
}

func toMessageResponse(message *domain.Message) messageResponse {
	return messageResponse{
		ID:        message.ID,
		Username:  message.Username,
		Text:      message.Text,
		ExpiresAt: message.ExpiresAt,
		Expired:   message.Expired,
		CreatedAt: message.CreatedAt,
	}
}

// deposit 投递一条新消息。
// timeout 字段只有 JSON 数值才会被采用，其余情况使用默认有效期。
func (h *Handler) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	username, text, fields := h.validator.ValidateDeposit(req.Username, req.Text)
	if fields != nil {
		ValidationFailed(c, fields)
		return
	}

	message, err := h.chats.Deposit(service.DepositInput{
		Username: username,
		Text:     text,
		Timeout:  req.Timeout,
	})
	if err != nil {
		InternalError(c, MsgDepositFailed)
		return
	}

	Created(c, depositResponse{ID: message.ID})
}

// getMessage 按 id 查询消息。无论过期与否都会返回，且不触发读取过期。
func (h *Handler) getMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ValidationFailed(c, h.validator.IDError())
		return
	}

	message, err := h.chats.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, h.msgs.NoMessageFound)
			return
		}
		InternalError(c, MsgMessageGetFailed)
		return
	}

	Success(c, toMessageResponse(message))
}

// missingUsername 处理缺少用户名的信箱请求。
func (h *Handler) missingUsername(c *gin.Context) {
	ValidationFailed(c, domain.FieldErrors{"username": h.msgs.UsernameRequired})
}

// retrieveMailbox 取走用户名下全部有效消息（破坏性读取）。
func (h *Handler) retrieveMailbox(c *gin.Context) {
	username := c.Param("username")
	if err := h.validator.ValidateUsername(username); err != nil {
		if errors.Is(err, domain.ErrUsernameWhitespace) {
			ValidationFailed(c, domain.FieldErrors{"username": h.msgs.UsernameWhitespace})
		} else {
			ValidationFailed(c, domain.FieldErrors{"username": h.msgs.UsernameRequired})
		}
		return
	}

	messages, err := h.chats.Retrieve(username)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxEmpty) {
			NotFound(c, h.msgs.NoMailboxMessages)
			return
		}
		InternalError(c, MsgRetrieveFailed)
		return
	}

	items := make([]messageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, toMessageResponse(&messages[i]))
	}

	Success(c, mailboxResponse{
		Items: items,
		Count: len(items),
	})
}
