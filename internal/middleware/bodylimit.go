package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit 默认请求体大小限制。消息体很小，1MB 已经非常宽裕。
const DefaultBodyLimit = 1 * 1024 * 1024

// BodySizeLimit 限制请求体大小的中间件
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
