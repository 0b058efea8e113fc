package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatbox/backend/internal/domain"
)

// Response 统一响应结构
type Response struct {
	Code   int         `json:"code"`             // 业务状态码
	Msg    string      `json:"msg"`              // 提示信息
	Data   interface{} `json:"data,omitempty"`   // 数据载荷
	Errors interface{} `json:"errors,omitempty"` // 按字段聚合的验证错误
}

// 业务状态码定义
const (
	CodeSuccess             = 200 // 成功
	CodeCreated             = 201 // 创建成功
	CodeBadRequest          = 400 // 请求参数错误
	CodeNotFound            = 404 // 资源不存在
	CodeUnprocessableEntity = 422 // 字段验证失败
	CodeInternalError       = 500 // 服务器内部错误
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  "ok",
		Data: data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: CodeCreated,
		Msg:  "created",
		Data: data,
	})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code: CodeBadRequest,
		Msg:  msg,
	})
}

// NotFound 资源不存在错误（404）
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{
		Code: CodeNotFound,
		Msg:  msg,
	})
}

// ValidationFailed 字段验证失败（422），errors 为字段到提示信息的映射
func ValidationFailed(c *gin.Context, fields domain.FieldErrors) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Code:   CodeUnprocessableEntity,
		Msg:    MsgValidationFailed,
		Errors: fields,
	})
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code: CodeInternalError,
		Msg:  msg,
	})
}
