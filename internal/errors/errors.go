package errors

import (
	"fmt"

	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// ErrorType 错误类型
type ErrorType string

const (
	// 系统级错误
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeConfig     ErrorType = "CONFIG_ERROR"
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"

	// 网络/连接错误
	ErrorTypeConnection ErrorType = "CONNECTION_ERROR"
	ErrorTypeTimeout    ErrorType = "TIMEOUT_ERROR"

	// 合约相关错误
	ErrorTypeMissingAddress    ErrorType = "MISSING_ADDRESS"
	ErrorTypeContractCall      ErrorType = "CONTRACT_CALL_ERROR"
	ErrorTypeTransactionFailed ErrorType = "TRANSACTION_FAILED"
	ErrorTypeDeployment        ErrorType = "DEPLOYMENT_ERROR"

	// JSON-RPC 相关错误
	ErrorTypeMethodNotFound ErrorType = "METHOD_NOT_FOUND"
	ErrorTypeInvalidParams  ErrorType = "INVALID_PARAMS"

	// 下游节点错误
	ErrorTypeDownstream ErrorType = "DOWNSTREAM_ERROR"
)

// AppError 应用统一的错误类型
type AppError struct {
	Type        ErrorType              `json:"type"`
	Code        int                    `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	OriginalErr error                  `json:"-"`
}

// New 创建新的应用错误
func New(errorType ErrorType, code int, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf 创建带格式的应用错误
func Newf(errorType ErrorType, code int, format string, args ...interface{}) *AppError {
	return New(errorType, code, fmt.Sprintf(format, args...))
}

// Wrap 包装现有错误
func Wrap(err error, errorType ErrorType, code int, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(errorType, code, message)
	appErr.OriginalErr = err
	appErr.Details = err.Error()
	return appErr
}

// Wrapf 包装现有错误并带格式
func Wrapf(err error, errorType ErrorType, code int, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, errorType, code, fmt.Sprintf(format, args...))
}

// WithContext 添加上下文信息
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s [%s:%d]: %s", e.Message, e.Type, e.Code, e.OriginalErr.Error())
	}
	if e.Details != "" {
		return fmt.Sprintf("%s [%s:%d] (details: %s)", e.Message, e.Type, e.Code, e.Details)
	}
	return fmt.Sprintf("%s [%s:%d]", e.Message, e.Type, e.Code)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.OriginalErr
}

// Is 按错误类型比较，便于 errors.Is(err, ErrValidation)
func (e *AppError) Is(target error) bool {
	if targetErr, ok := target.(*AppError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// ToJSONRPCError 转换为 JSON-RPC 错误
func (e *AppError) ToJSONRPCError() *jsonrpc.Error {
	var jsonrpcCode int
	switch e.Type {
	case ErrorTypeInvalidParams, ErrorTypeValidation, ErrorTypeMissingAddress:
		jsonrpcCode = jsonrpc.CodeInvalidParams
	case ErrorTypeMethodNotFound:
		jsonrpcCode = jsonrpc.CodeMethodNotFound
	case ErrorTypeConnection, ErrorTypeTimeout, ErrorTypeDownstream:
		jsonrpcCode = jsonrpc.CodeServerErrorStart
	case ErrorTypeContractCall, ErrorTypeTransactionFailed, ErrorTypeDeployment:
		jsonrpcCode = CodeChainFailure
	default:
		jsonrpcCode = jsonrpc.CodeInternalError
	}

	errorData := map[string]interface{}{
		"type": string(e.Type),
		"code": e.Code,
	}
	if e.Details != "" {
		errorData["details"] = e.Details
	}
	for k, v := range e.Context {
		errorData[k] = v
	}

	return &jsonrpc.Error{
		Code:    jsonrpcCode,
		Message: e.Message,
		Data:    errorData,
	}
}

// 合约相关错误的应用错误码，JSON-RPC 层统一为 CodeChainFailure，原码放在 data.code
const (
	CodeChainFailure = jsonrpc.CodeServerErrorStart - 2

	CodeContractCall      = jsonrpc.CodeServerErrorStart - 10
	CodeTransactionFailed = jsonrpc.CodeServerErrorStart - 11
	CodeDeployment        = jsonrpc.CodeServerErrorStart - 12
)

// Common errors 常用错误，仅用于 errors.Is 比较
var (
	ErrInternal   = New(ErrorTypeInternal, jsonrpc.CodeInternalError, "Internal error")
	ErrConfig     = New(ErrorTypeConfig, jsonrpc.CodeInternalError, "Configuration error")
	ErrValidation = New(ErrorTypeValidation, jsonrpc.CodeInvalidParams, "Validation failed")

	ErrConnection = New(ErrorTypeConnection, jsonrpc.CodeServerErrorStart, "Connection failed")
	ErrTimeout    = New(ErrorTypeTimeout, jsonrpc.CodeServerErrorStart-1, "Request timeout")

	ErrMissingAddress    = New(ErrorTypeMissingAddress, jsonrpc.CodeInvalidParams, "Contract address is missing")
	ErrContractCall      = New(ErrorTypeContractCall, CodeContractCall, "Contract call failed")
	ErrTransactionFailed = New(ErrorTypeTransactionFailed, CodeTransactionFailed, "Transaction failed")
	ErrDeployment        = New(ErrorTypeDeployment, CodeDeployment, "Deployment failed")

	ErrMethodNotFound = New(ErrorTypeMethodNotFound, jsonrpc.CodeMethodNotFound, "Method not found")
	ErrInvalidParams  = New(ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams, "Invalid parameters")

	ErrDownstream = New(ErrorTypeDownstream, jsonrpc.CodeServerErrorStart-30, "Downstream node error")
)

// MissingAddress 创建缺少合约地址的错误，name 如 "Proxy"
func MissingAddress(name string) *AppError {
	return New(ErrorTypeMissingAddress, jsonrpc.CodeInvalidParams, fmt.Sprintf("%s address is missing", name)).
		WithContext("contract", name)
}
