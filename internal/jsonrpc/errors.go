package jsonrpc

import "fmt"

// 标准 JSON-RPC 错误码
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// -32000 到 -32099 为服务器保留错误码
	CodeServerErrorStart = -32000
	CodeServerErrorEnd   = -32099

	// 批量请求被取消时返回
	CodeRequestCancelled = CodeServerErrorStart - 1
)

// 每次返回新的 *Error，调用方可以放心填 Data

// NewParseError 请求体不是合法的 JSON-RPC
func NewParseError(data interface{}) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: data}
}

// NewInvalidRequest 请求结构无效
func NewInvalidRequest(data interface{}) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: data}
}

// NewMethodNotFound 方法不存在，data 中带上方法名
func NewMethodNotFound(method string) *Error {
	e := &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	if method != "" {
		e.Data = map[string]string{"method": method}
	}
	return e
}

// NewInvalidParams 参数无效
func NewInvalidParams(data interface{}) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: data}
}

// NewInternalError 内部错误
func NewInternalError(data interface{}) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

// NewServerError 创建服务器错误，超出保留范围的 code 降级为内部错误
func NewServerError(code int, message string, data interface{}) *Error {
	if !IsServerError(code) {
		code = CodeInternalError
	}
	return &Error{Code: code, Message: message, Data: data}
}

// NewCustomError 原样使用 code
func NewCustomError(code int, message string, data interface{}) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// IsServerError 检查错误码是否在服务器保留范围内
func IsServerError(code int) bool {
	return code <= CodeServerErrorStart && code >= CodeServerErrorEnd
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}
