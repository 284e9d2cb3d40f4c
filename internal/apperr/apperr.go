package apperr

import "fmt"

// Kind 错误种类标签。Business 类错误可以原样透出给前端，
// Technical 类错误只记日志，对外统一兜底文案。
type Kind string

const (
	// Business（调用方/输入导致）
	KindNotFound        Kind = "NotFound"
	KindValidation      Kind = "Validation"
	KindDuplicate       Kind = "Duplicate"
	KindImageUpload     Kind = "ImageUpload"
	KindImageValidation Kind = "ImageValidation"

	// Technical（系统/集成导致）
	KindGatewayAPI        Kind = "GatewayAPI"
	KindGatewayConnection Kind = "GatewayConnection"
	KindGatewayConfig     Kind = "GatewayConfig"
	KindConfigMissing     Kind = "ConfigMissing"
	KindConfigEmpty       Kind = "ConfigEmpty"
)

func (k Kind) IsBusiness() bool {
	switch k {
	case KindNotFound, KindValidation, KindDuplicate, KindImageUpload, KindImageValidation:
		return true
	}
	return false
}

func (k Kind) IsTechnical() bool { return !k.IsBusiness() }

// 每个 Kind 的默认 reason（对外永远安全的短语）
var defaultReason = map[Kind]string{
	KindNotFound:          "requested resource was not found",
	KindValidation:        "request validation failed",
	KindDuplicate:         "resource already exists",
	KindImageUpload:       "image upload failed",
	KindImageValidation:   "image validation failed",
	KindGatewayAPI:        "upstream service error",
	KindGatewayConnection: "upstream service unreachable",
	KindGatewayConfig:     "gateway misconfigured",
	KindConfigMissing:     "configuration missing",
	KindConfigEmpty:       "configuration empty",
}

// Error 统一错误对象：Kind + 技术信息（只进日志）+ 安全 reason + 可选 cause。
type Error struct {
	Kind    Kind
	Message string // 技术描述，Technical 类永不下发
	Reason  string // 始终可对外的一句话
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New 构造错误。技术信息不允许为空（否则日志没法排障），空时 panic 提前暴露编码错误。
func New(kind Kind, message string) *Error {
	if message == "" {
		panic("apperr: empty technical message for kind " + string(kind))
	}
	return &Error{Kind: kind, Message: message, Reason: defaultReason[kind]}
}

// Newf 带格式化的构造
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap 包一层 cause，保留错误链
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

// WithReason 覆盖默认 reason（仅 Business 类有意义，Technical 类边界层不会用它）
func (e *Error) WithReason(reason string) *Error {
	if reason != "" {
		e.Reason = reason
	}
	return e
}

// 便捷构造

func NotFound(what, id string) *Error {
	e := Newf(KindNotFound, "%s %q not found", what, id)
	e.Reason = what + " not found"
	return e
}

func Validation(message string) *Error {
	e := New(KindValidation, message)
	e.Reason = message // 校验失败信息本身就是面向用户写的
	return e
}

func Duplicate(what, field string) *Error {
	e := Newf(KindDuplicate, "%s with same %s already exists", what, field)
	e.Reason = what + " already exists"
	return e
}
