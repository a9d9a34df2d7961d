package router

import (
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// BaseHandler 提供处理器的基础功能
type BaseHandler struct {
	method string
	logger *logrus.Logger
}

// NewBaseHandler 创建基础处理器
func NewBaseHandler(method string, logger *logrus.Logger) *BaseHandler {
	return &BaseHandler{
		method: method,
		logger: logger,
	}
}

// Method 返回方法名
func (h *BaseHandler) Method() string {
	return h.method
}

// invalidParams 创建 INVALID_PARAMS 错误
func invalidParams(format string, args ...interface{}) *apperrors.AppError {
	return apperrors.Newf(apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams, format, args...)
}

// ParamsArray 解析参数数组，长度必须在 [min, max] 之间。params 缺省视为空数组。
func (h *BaseHandler) ParamsArray(request *jsonrpc.Request, min, max int) ([]*fastjson.Value, error) {
	if len(request.Params) == 0 || string(request.Params) == "null" {
		if min > 0 {
			return nil, invalidParams("%s expects at least %d parameters", request.Method, min)
		}
		return nil, nil
	}

	v, err := fastjson.ParseBytes(request.Params)
	if err != nil {
		return nil, invalidParams("params must be valid JSON: %v", err)
	}
	values, err := v.Array()
	if err != nil {
		return nil, invalidParams("params must be an array")
	}

	if len(values) < min || len(values) > max {
		if min == max {
			return nil, invalidParams("%s expects %d parameters, got %d", request.Method, min, len(values))
		}
		return nil, invalidParams("%s expects %d to %d parameters, got %d", request.Method, min, max, len(values))
	}
	return values, nil
}

// stringParam 读取字符串参数，数字按原文返回
func stringParam(v *fastjson.Value, name string) (string, error) {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes()), nil
	case fastjson.TypeNumber:
		return v.String(), nil
	default:
		return "", invalidParams("%s must be a string", name)
	}
}

// intParam 读取整数参数，也接受十进制字符串
func intParam(v *fastjson.Value, name string) (int64, error) {
	switch v.Type() {
	case fastjson.TypeNumber:
		n, err := v.Int64()
		if err != nil {
			return 0, invalidParams("%s must be an integer", name)
		}
		return n, nil
	case fastjson.TypeString:
		n, err := strconv.ParseInt(string(v.GetStringBytes()), 10, 64)
		if err != nil {
			return 0, invalidParams("%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, invalidParams("%s must be an integer", name)
	}
}

// CreateSuccessResponse 创建成功响应
func (h *BaseHandler) CreateSuccessResponse(id interface{}, result interface{}) (*jsonrpc.Response, error) {
	response, err := jsonrpc.NewResponse(id, result)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create success response")
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInternal, jsonrpc.CodeInternalError, "failed to create response")
	}
	return response, nil
}

// CreateErrorResponse 把任意错误转换为错误响应
func (h *BaseHandler) CreateErrorResponse(id interface{}, err error) *jsonrpc.Response {
	return errorResponse(id, err)
}

// LogRequest 记录请求日志
func (h *BaseHandler) LogRequest(request *jsonrpc.Request) {
	h.logger.WithFields(logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
		"params": string(request.Params),
	}).Debug("Processing JSON-RPC request")
}

// LogResponse 记录响应日志
func (h *BaseHandler) LogResponse(request *jsonrpc.Request, response *jsonrpc.Response, err error) {
	fields := logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
	}

	switch {
	case err != nil:
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Warn("Request processing failed")
	case response != nil && response.Error != nil:
		fields["error_code"] = response.Error.Code
		fields["error_message"] = response.Error.Message
		h.logger.WithFields(fields).Warn("Request returned error")
	default:
		h.logger.WithFields(fields).Debug("Request processed successfully")
	}
}
