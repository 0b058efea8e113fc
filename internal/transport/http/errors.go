package httptransport

// 通用错误消息。字段级验证文案和未找到文案可通过配置覆盖，
// 见 config.MessageTexts。
const (
	MsgInvalidRequest   = "invalid request body"
	MsgValidationFailed = "validation failed"
	MsgDepositFailed    = "failed to store message"
	MsgMessageGetFailed = "failed to load message"
	MsgRetrieveFailed   = "failed to retrieve messages"
	MsgInternalError    = "internal server error"
)
