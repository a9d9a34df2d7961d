package router

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// hex_* 方法名
const (
	MethodHexStripPrefix      = "hex_stripPrefix"
	MethodHexValidate         = "hex_validate"
	MethodHexFormatAddress    = "hex_formatAddress"
	MethodHexValidateIndex    = "hex_validateIndex"
	MethodHexDeriveAddress    = "hex_deriveAddress"
	MethodHexNormalizeAddress = "hex_normalizeAddress"
)

// HexMethods 列出 HexHandler 处理的方法
var HexMethods = []string{
	MethodHexStripPrefix,
	MethodHexValidate,
	MethodHexFormatAddress,
	MethodHexValidateIndex,
	MethodHexDeriveAddress,
	MethodHexNormalizeAddress,
}

// HexHandler 在线提供 hexutil 的校验和格式化。不访问节点。
type HexHandler struct {
	*BaseHandler
}

// NewHexHandler 创建 hex 处理器
func NewHexHandler(logger *logrus.Logger) *HexHandler {
	return &HexHandler{BaseHandler: NewBaseHandler("hex_handler", logger)}
}

// Handle 处理 hex_* 请求。校验失败返回 -32602，data 中带有 value、rule、max_length。
func (h *HexHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	h.LogRequest(request)

	var (
		result interface{}
		err    error
	)
	switch request.Method {
	case MethodHexStripPrefix:
		result, err = h.single(request, func(value string) (interface{}, error) {
			return hexutil.StripHexPrefix(value), nil
		})
	case MethodHexValidate:
		result, err = h.validate(request)
	case MethodHexFormatAddress:
		result, err = h.single(request, func(value string) (interface{}, error) {
			return hexutil.FormatAddress(value)
		})
	case MethodHexValidateIndex:
		result, err = h.validateIndex(request)
	case MethodHexDeriveAddress:
		result, err = h.single(request, func(value string) (interface{}, error) {
			return hexutil.DeriveAddressFromPackedUID(value)
		})
	case MethodHexNormalizeAddress:
		result, err = h.single(request, func(value string) (interface{}, error) {
			addr, err := hexutil.NormalizeAddress(value)
			if err != nil {
				return nil, err
			}
			return addr.String(), nil
		})
	default:
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewMethodNotFound(request.Method)), nil
	}

	if err != nil {
		h.LogResponse(request, nil, err)
		return nil, err
	}
	return h.CreateSuccessResponse(request.ID, result)
}

// single 处理只有一个字符串参数的方法
func (h *HexHandler) single(request *jsonrpc.Request, fn func(value string) (interface{}, error)) (interface{}, error) {
	params, err := h.ParamsArray(request, 1, 1)
	if err != nil {
		return nil, err
	}
	value, err := stringParam(params[0], "value")
	if err != nil {
		return nil, err
	}
	return fn(value)
}

// validate 处理 [value, maxLength?]，maxLength 缺省为 64
func (h *HexHandler) validate(request *jsonrpc.Request) (interface{}, error) {
	params, err := h.ParamsArray(request, 1, 2)
	if err != nil {
		return nil, err
	}
	value, err := stringParam(params[0], "value")
	if err != nil {
		return nil, err
	}

	maxLength := int64(hexutil.DefaultMaxHexLength)
	if len(params) == 2 && params[1].Type() != fastjson.TypeNull {
		if maxLength, err = intParam(params[1], "maxLength"); err != nil {
			return nil, err
		}
		if maxLength <= 0 {
			return nil, invalidParams("maxLength must be positive")
		}
	}

	if err := hexutil.ValidateHexString(value, int(maxLength)); err != nil {
		return nil, err
	}
	return true, nil
}

func (h *HexHandler) validateIndex(request *jsonrpc.Request) (interface{}, error) {
	params, err := h.ParamsArray(request, 1, 1)
	if err != nil {
		return nil, err
	}
	index, err := intParam(params[0], "index")
	if err != nil {
		return nil, err
	}
	return hexutil.ValidateIndex(index), nil
}
