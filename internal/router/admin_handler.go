package router

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/mowind/proxyadmin-go/internal/admin"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// admin_* 方法名
const (
	MethodAdminExecute    = "admin_execute"
	MethodAdminContracts  = "admin_contracts"
	MethodAdminOperations = "admin_operations"
)

// AdminMethods 列出 AdminHandler 处理的方法
var AdminMethods = []string{MethodAdminExecute, MethodAdminContracts, MethodAdminOperations}

// AdminHandler 执行管理操作
type AdminHandler struct {
	*BaseHandler
	executor *admin.Executor
}

// NewAdminHandler 创建管理操作处理器
func NewAdminHandler(executor *admin.Executor, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler("admin_handler", logger),
		executor:    executor,
	}
}

// OperationInfo admin_operations 的返回项
type OperationInfo struct {
	Kind   admin.Kind `json:"kind"`
	Params []string   `json:"params"`
}

// Handle 处理 admin_* 请求
func (h *AdminHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	h.LogRequest(request)

	switch request.Method {
	case MethodAdminExecute:
		return h.execute(ctx, request)
	case MethodAdminContracts:
		if _, err := h.ParamsArray(request, 0, 0); err != nil {
			return nil, err
		}
		return h.CreateSuccessResponse(request.ID, h.executor.Contracts())
	case MethodAdminOperations:
		kinds := admin.Kinds()
		out := make([]OperationInfo, len(kinds))
		for i, k := range kinds {
			out[i] = OperationInfo{Kind: k, Params: admin.ParamKeys(k)}
		}
		return h.CreateSuccessResponse(request.ID, out)
	default:
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewMethodNotFound(request.Method)), nil
	}
}

// execute 处理 [{"kind": "...", "params": {...}}]。参数值可以是字符串或数字。
func (h *AdminHandler) execute(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	params, err := h.ParamsArray(request, 1, 1)
	if err != nil {
		return nil, err
	}
	kind, opParams, err := parseOperation(params[0])
	if err != nil {
		return nil, err
	}

	op, err := admin.NewOperation(kind, opParams)
	if err != nil {
		return nil, err
	}

	logger := h.logger.WithFields(logrus.Fields{"kind": kind, "id": request.ID})
	logger.Info("Executing admin operation")

	result, err := h.executor.Execute(ctx, op)
	if err != nil {
		logger.WithError(err).Warn("Admin operation failed")
		jsonErr := apperrors.ConvertToJSONRPC(err)
		if data, ok := jsonErr.Data.(map[string]interface{}); ok && result != nil {
			data["logs"] = result.Logs
			data["operation_id"] = result.OperationID
		}
		return jsonrpc.NewErrorResponse(request.ID, jsonErr), nil
	}

	logger.WithField("operation_id", result.OperationID).Info("Admin operation completed")
	return h.CreateSuccessResponse(request.ID, result)
}

func parseOperation(v *fastjson.Value) (string, admin.Params, error) {
	obj, err := v.Object()
	if err != nil {
		return "", nil, invalidParams("operation must be an object")
	}

	kindValue := obj.Get("kind")
	if kindValue == nil || kindValue.Type() != fastjson.TypeString {
		return "", nil, invalidParams("operation kind is required")
	}
	kind := string(kindValue.GetStringBytes())

	params := admin.Params{}
	raw := obj.Get("params")
	if raw == nil || raw.Type() == fastjson.TypeNull {
		return kind, params, nil
	}
	paramsObj, err := raw.Object()
	if err != nil {
		return "", nil, invalidParams("operation params must be an object")
	}

	var visitErr error
	paramsObj.Visit(func(key []byte, value *fastjson.Value) {
		if visitErr != nil {
			return
		}
		s, err := stringParam(value, string(key))
		if err != nil {
			visitErr = err
			return
		}
		params[string(key)] = s
	})
	if visitErr != nil {
		return "", nil, visitErr
	}
	return kind, params, nil
}
