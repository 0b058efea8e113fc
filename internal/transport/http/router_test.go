package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatbox/backend/internal/config"
	"chatbox/backend/internal/service"
	"chatbox/backend/internal/storage/memory"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Chat: config.ChatConfig{
			DefaultTimeout: 60 * time.Second,
			Messages: config.MessageTexts{
				UsernameRequired:   "username must be at least 1 character",
				UsernameWhitespace: "username must not contain whitespace",
				TextRequired:       "text must be at least 1 character",
				IDType:             "id must be an integer",
				NoMessageFound:     "no message found",
				NoMailboxMessages:  "no messages found",
			},
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	store := memory.NewStore()
	chatService := service.NewChatService(store, cfg)

	return NewRouter(RouterDependencies{
		Config:      cfg,
		ChatService: chatService,
		Logger:      zap.NewNop(),
	})
}

type testResponse struct {
	Code   int               `json:"code"`
	Msg    string            `json:"msg"`
	Data   json.RawMessage   `json:"data"`
	Errors map[string]string `json:"errors"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var parsed testResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	return recorder, parsed
}

func depositOK(t *testing.T, router *gin.Engine, body gin.H) int64 {
	t.Helper()
	recorder, parsed := doRequest(t, router, http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var data struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(parsed.Data, &data))
	require.Positive(t, data.ID)
	return data.ID
}

func TestDeposit(t *testing.T) {
	router := newTestRouter(t)

	t.Run("有效请求返回 201 和消息 id", func(t *testing.T) {
		id := depositOK(t, router, gin.H{"username": "jim", "text": "this is my first message!"})
		assert.Positive(t, id)
	})

	t.Run("空用户名返回 422", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodPost, "/chat", gin.H{"username": "", "text": "hi"})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "username must be at least 1 character", parsed.Errors["username"])
	})

	t.Run("含空白字符的用户名返回 422", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodPost, "/chat", gin.H{"username": "jim smith", "text": "hi"})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "username must not contain whitespace", parsed.Errors["username"])
	})

	t.Run("空消息内容返回 422", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodPost, "/chat", gin.H{"username": "jim", "text": "   "})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "text must be at least 1 character", parsed.Errors["text"])
	})

	t.Run("验证失败时不创建任何记录", func(t *testing.T) {
		_, _ = doRequest(t, router, http.MethodPost, "/chat", gin.H{"username": "", "text": ""})

		recorder, _ := doRequest(t, router, http.MethodGet, "/chats/nobody", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("非法 JSON 返回 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetMessage(t *testing.T) {
	router := newTestRouter(t)

	t.Run("非整数 id 返回 422", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodGet, "/chat/abc", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "id must be an integer", parsed.Errors["id"])
	})

	t.Run("格式正确但不存在的 id 返回 404", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodGet, "/chat/9007199254740991", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "no message found", parsed.Msg)
	})

	t.Run("按 id 查询返回消息且不触发过期", func(t *testing.T) {
		id := depositOK(t, router, gin.H{"username": "jim", "text": "lookup me"})

		recorder, parsed := doRequest(t, router, http.MethodGet, fmt.Sprintf("/chat/%d", id), nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var message struct {
			ID      int64  `json:"id"`
			Text    string `json:"text"`
			Expired bool   `json:"expired"`
		}
		require.NoError(t, json.Unmarshal(parsed.Data, &message))
		assert.Equal(t, id, message.ID)
		assert.Equal(t, "lookup me", message.Text)
		assert.False(t, message.Expired)

		// GetByID 不是破坏性读取，消息仍可被 Retrieve 取走
		recorder, _ = doRequest(t, router, http.MethodGet, "/chats/jim", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("已取走的消息仍可按 id 查询", func(t *testing.T) {
		id := depositOK(t, router, gin.H{"username": "kate", "text": "read me"})

		recorder, _ := doRequest(t, router, http.MethodGet, "/chats/kate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder, parsed := doRequest(t, router, http.MethodGet, fmt.Sprintf("/chat/%d", id), nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var message struct {
			Expired bool `json:"expired"`
		}
		require.NoError(t, json.Unmarshal(parsed.Data, &message))
		assert.True(t, message.Expired)
	})
}

func TestRetrieveMailbox(t *testing.T) {
	router := newTestRouter(t)

	t.Run("缺少用户名永远返回 422 而不是 404", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodGet, "/chats", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "username must be at least 1 character", parsed.Errors["username"])
	})

	t.Run("没有有效消息时返回 404", func(t *testing.T) {
		recorder, parsed := doRequest(t, router, http.MethodGet, "/chats/empty", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "no messages found", parsed.Msg)
	})

	t.Run("取走全部有效消息且第二次读取为 404", func(t *testing.T) {
		first := depositOK(t, router, gin.H{"username": "bob", "text": "one"})
		second := depositOK(t, router, gin.H{"username": "bob", "text": "two"})

		recorder, parsed := doRequest(t, router, http.MethodGet, "/chats/bob", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var mailbox struct {
			Items []struct {
				ID   int64  `json:"id"`
				Text string `json:"text"`
			} `json:"items"`
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(parsed.Data, &mailbox))
		require.Equal(t, 2, mailbox.Count)
		assert.Equal(t, first, mailbox.Items[0].ID)
		assert.Equal(t, second, mailbox.Items[1].ID)
		assert.Equal(t, "one", mailbox.Items[0].Text)
		assert.Equal(t, "two", mailbox.Items[1].Text)

		recorder, _ = doRequest(t, router, http.MethodGet, "/chats/bob", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("零超时的消息投递后立即不可取", func(t *testing.T) {
		depositOK(t, router, gin.H{"username": "zero", "text": "gone", "timeout": 0})

		recorder, _ := doRequest(t, router, http.MethodGet, "/chats/zero", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("用户名之间相互隔离", func(t *testing.T) {
		depositOK(t, router, gin.H{"username": "a", "text": "for a"})

		recorder, _ := doRequest(t, router, http.MethodGet, "/chats/b", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)

		recorder, _ = doRequest(t, router, http.MethodGet, "/chats/a", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}
