package errors

import (
	"errors"

	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	"github.com/mowind/proxyadmin-go/internal/hexutil"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// FromValidation 从 hexutil 校验错误转换，保留被拒绝的值和规则
func FromValidation(ve *hexutil.ValidationError) *AppError {
	if ve == nil {
		return nil
	}

	return Wrap(ve, ErrorTypeValidation, jsonrpc.CodeInvalidParams, "Validation failed").
		WithContext("value", ve.Value).
		WithContext("rule", string(ve.Rule)).
		WithContext("max_length", ve.MaxLength)
}

// FromJSONRPC 从 JSON-RPC 错误转换
func FromJSONRPC(jsonErr *jsonrpc.Error) *AppError {
	if jsonErr == nil {
		return nil
	}

	var errorType ErrorType
	switch jsonErr.Code {
	case jsonrpc.CodeMethodNotFound:
		errorType = ErrorTypeMethodNotFound
	case jsonrpc.CodeInvalidParams:
		errorType = ErrorTypeInvalidParams
	case jsonrpc.CodeInternalError:
		errorType = ErrorTypeInternal
	default:
		// 节点返回的 revert 等错误
		errorType = ErrorTypeContractCall
	}

	return &AppError{
		Type:        errorType,
		Code:        jsonErr.Code,
		Message:     jsonErr.Message,
		OriginalErr: jsonErr,
		Context: map[string]interface{}{
			"original_data": jsonErr.Data,
		},
	}
}

// FromDownstream 从下游节点错误转换
func FromDownstream(err *downstream.Error) *AppError {
	if err == nil {
		return nil
	}

	switch err.Code {
	case downstream.ErrorCodeConnectionFailed:
		return Wrap(err, ErrorTypeConnection, jsonrpc.CodeServerErrorStart, "Connection to node failed")
	case downstream.ErrorCodeTimeout:
		return Wrap(err, ErrorTypeTimeout, jsonrpc.CodeServerErrorStart-1, "Node request timeout")
	case downstream.ErrorCodeRPCError:
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return FromJSONRPC(rpcErr)
		}
		return Wrap(err, ErrorTypeContractCall, jsonrpc.CodeServerErrorStart-10, "Node returned an error")
	default:
		return Wrap(err, ErrorTypeDownstream, jsonrpc.CodeServerErrorStart-30, "Downstream node error")
	}
}

// ConvertError 通用的错误转换函数
func ConvertError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ve *hexutil.ValidationError
	if errors.As(err, &ve) {
		return FromValidation(ve)
	}

	var missing *contracts.MissingAddressError
	if errors.As(err, &missing) {
		return MissingAddress(string(missing.Kind))
	}

	var dsErr *downstream.Error
	if errors.As(err, &dsErr) {
		return FromDownstream(dsErr)
	}

	var jsonErr *jsonrpc.Error
	if errors.As(err, &jsonErr) {
		return FromJSONRPC(jsonErr)
	}

	return Wrap(err, ErrorTypeInternal, jsonrpc.CodeInternalError, "Internal error")
}

// ConvertToJSONRPC 快速转换为 JSON-RPC 错误
func ConvertToJSONRPC(err error) *jsonrpc.Error {
	if err == nil {
		return nil
	}
	return ConvertError(err).ToJSONRPCError()
}

// IsErrorType 检查错误是否属于指定类型
func IsErrorType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable 检查错误是否可重试
func IsRetryable(err error) bool {
	appErr := ConvertError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeConnection, ErrorTypeTimeout:
		return true
	}
	return false
}

// IsClientError 检查是否是操作员输入导致的错误
func IsClientError(err error) bool {
	appErr := ConvertError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeValidation, ErrorTypeInvalidParams, ErrorTypeMethodNotFound, ErrorTypeMissingAddress:
		return true
	}
	return false
}
