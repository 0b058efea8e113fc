package domain

import (
	"errors"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrUsernameEmpty      = errors.New("username is empty")
	ErrUsernameWhitespace = errors.New("username contains whitespace")
	ErrTextEmpty          = errors.New("text is empty")
)

// 用户名不允许包含任何空白字符
var usernameRegex = regexp.MustCompile(`^\S+$`)

// FieldErrors 按字段聚合的验证错误映射，键为字段名，值为对外提示信息。
type FieldErrors map[string]string

// ValidationMessages 定义各验证失败时返回给调用方的提示文案。
// 文案可通过配置覆盖，默认值见 config 包。
type ValidationMessages struct {
	UsernameRequired   string
	UsernameWhitespace string
	TextRequired       string
	IDType             string
}

// ChatValidator 负责投递请求的字段验证。
type ChatValidator struct {
	msgs ValidationMessages
}

// NewChatValidator 创建字段验证器。
func NewChatValidator(msgs ValidationMessages) *ChatValidator {
	return &ChatValidator{msgs: msgs}
}

// ValidateDeposit 验证投递字段并返回去除首尾空白后的值。
// 验证失败时返回按字段聚合的错误映射，任何失败都不会触达存储层。
func (v *ChatValidator) ValidateDeposit(username, text string) (string, string, FieldErrors) {
	username = strings.TrimSpace(username)
	text = strings.TrimSpace(text)

	fields := FieldErrors{}
	switch {
	case username == "":
		fields["username"] = v.msgs.UsernameRequired
	case !usernameRegex.MatchString(username):
		fields["username"] = v.msgs.UsernameWhitespace
	}
	if text == "" {
		fields["text"] = v.msgs.TextRequired
	}

	if len(fields) > 0 {
		return username, text, fields
	}
	return username, text, nil
}

// IDError 返回非整数 id 的字段错误映射。
func (v *ChatValidator) IDError() FieldErrors {
	return FieldErrors{"id": v.msgs.IDType}
}

// ValidateUsername 验证单个用户名（用于 Retrieve 路径）。
func (v *ChatValidator) ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameEmpty
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameWhitespace
	}
	return nil
}
