package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode 是字符串类型的错误类别代码。
type ErrorCode string

// 标准错误代码。重试策略依据代码区分可重试与终止性失败。
const (
	// ErrValidation 表示请求参数校验失败。不可重试。
	ErrValidation ErrorCode = "VALIDATION"
	// ErrConnection 表示网络或数据源的瞬时故障。可重试。
	ErrConnection ErrorCode = "CONNECTION"
	// ErrTimeout 表示请求超时。可重试。
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrNoData 表示数据源正常响应但没有该标的的数据。不可重试。
	ErrNoData ErrorCode = "NO_DATA"
	// ErrDataQuality 表示返回数据未通过OHLC不变式检查（仅严格模式下作为错误）。
	ErrDataQuality ErrorCode = "DATA_QUALITY"
	// ErrCacheMiss 表示缓存中不存在或已过期。
	ErrCacheMiss ErrorCode = "CACHE_MISS"
	// ErrCacheIO 表示缓存持久化操作失败。
	ErrCacheIO ErrorCode = "CACHE_IO"
	// ErrExport 表示某种导出格式的序列化失败。
	ErrExport ErrorCode = "EXPORT"
	// ErrAuth 表示数据源认证失败。
	ErrAuth ErrorCode = "AUTH"
	// ErrRetryExhausted 表示重试次数耗尽后仍然失败。
	ErrRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
	// ErrProviderClosed 表示数据提供商已关闭。
	ErrProviderClosed ErrorCode = "PROVIDER_CLOSED"
	// ErrCircuitOpen 表示熔断器处于打开状态，请求被直接拒绝。
	ErrCircuitOpen ErrorCode = "CIRCUIT_OPEN"
)

// Error 是本项目统一的错误类型，携带错误代码、原因链与附加上下文。
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error 实现内置 error 接口。
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回被包装的原始错误。
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误代码判断两个错误是否同类。
func (e *Error) Is(target error) bool {
	var me *Error
	if errors.As(target, &me) {
		return e.Code == me.Code
	}
	return false
}

// WithContext 为错误附加一个键值对上下文。
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError 创建一个新的市场数据错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorf 创建一个带格式化消息的市场数据错误。
func NewErrorf(code ErrorCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError 将已有错误包装为带代码的市场数据错误。
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// CodeOf 提取错误的代码。非本包错误返回空代码。
func CodeOf(err error) ErrorCode {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsCode 判断错误链中是否包含指定代码的错误。
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable 判断错误是否可重试。
// 只有连接类与超时类的瞬时故障可以重试；校验失败、无数据等
// 终止性错误立即上抛。
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrConnection, ErrTimeout:
		return true
	}
	return false
}
