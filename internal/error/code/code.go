package code

import (
	"errors"
	"fmt"
)

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
)

// Kind is the machine readable error code returned in the response envelope.
type Kind string

// 客户端错误.
const (
	// InvalidJSON - 400: body is not well-formed JSON.
	InvalidJSON Kind = "INVALID_JSON"
	// InvalidPayload - 400: body failed schema validation.
	InvalidPayload Kind = "INVALID_PAYLOAD"
	// MissingParam - 400: required query parameter absent.
	MissingParam Kind = "MISSING_PARAM"
	// InvalidParam - 400: query parameter present but malformed.
	InvalidParam Kind = "INVALID_PARAM"
	// Unauthorized - 401: device key missing or wrong.
	Unauthorized Kind = "UNAUTHORIZED"
	// Forbidden - 403: operator token missing or lacking the role.
	Forbidden Kind = "FORBIDDEN"
	// NotFound - 404: no rows for the requested device.
	NotFound Kind = "NOT_FOUND"
	// RateLimited - 429: device sent again inside its cooldown.
	RateLimited Kind = "RATE_LIMITED"
)

// 服务端错误.
const (
	// DBError - 500: store operation failed or timed out.
	DBError Kind = "DB_ERROR"
	// InternalError - 500: anything not otherwise classified.
	InternalError Kind = "INTERNAL_ERROR"
)

// Error is a classified failure. Err holds the underlying cause for logging
// and is never serialized.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	return GetStatus(e.Kind)
}

// New 创建一个错误，message为空时使用默认消息
func New(kind Kind, message string) *Error {
	if message == "" {
		message = GetMessage(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// WithDetails 创建带字段详情的错误
func WithDetails(kind Kind, message string, details interface{}) *Error {
	e := New(kind, message)
	e.Details = details
	return e
}

// Wrap 包装底层错误
func Wrap(kind Kind, err error, message string) *Error {
	e := New(kind, message)
	e.Err = err
	return e
}

// AsError returns err as a classified error. Unclassified errors collapse to
// INTERNAL_ERROR with the default message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(InternalError, err, "")
}

// Is reports whether err is a classified error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
