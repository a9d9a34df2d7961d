package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONRPCVersion 协议版本
const JSONRPCVersion = "2.0"

// Request 表示 JSON-RPC 2.0 请求
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response 表示 JSON-RPC 2.0 响应
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// Error 表示 JSON-RPC 2.0 错误
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrEmptyBatch 批量请求为空数组
var ErrEmptyBatch = errors.New("empty batch request")

// ParseRequest 解析单个或批量请求，单个请求也返回长度为 1 的切片
func ParseRequest(data []byte) ([]Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}

	var requests []Request
	if data[0] == '[' {
		if err := json.Unmarshal(data, &requests); err != nil {
			return nil, fmt.Errorf("invalid JSON-RPC batch: %w", err)
		}
		if len(requests) == 0 {
			return nil, ErrEmptyBatch
		}
	} else {
		var single Request
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
		}
		requests = []Request{single}
	}

	for i := range requests {
		if err := validateRequest(&requests[i]); err != nil {
			if len(requests) > 1 {
				return nil, fmt.Errorf("request at index %d: %w", i, err)
			}
			return nil, err
		}
	}
	return requests, nil
}

// validateRequest 校验版本、方法名和 id 类型
func validateRequest(req *Request) error {
	if req.JSONRPC != JSONRPCVersion {
		return fmt.Errorf("invalid jsonrpc version: %q", req.JSONRPC)
	}
	if req.Method == "" {
		return errors.New("method is required")
	}
	// encoding/json 把数字解码为 float64
	switch req.ID.(type) {
	case nil, string, float64:
		return nil
	default:
		return fmt.Errorf("invalid id type: %T", req.ID)
	}
}

// NewRequest 创建请求，params 会被序列化为 JSON 数组或对象
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	req := &Request{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		ID:      id,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params for %s: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// NewResponse 创建成功响应
func NewResponse(id interface{}, result interface{}) (*Response, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	return &Response{
		JSONRPC: JSONRPCVersion,
		Result:  resultJSON,
		ID:      id,
	}, nil
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(id interface{}, err *Error) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		Error:   err,
		ID:      id,
	}
}

// MarshalResponse 序列化响应
func MarshalResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// MarshalResponses 序列化批量响应
func MarshalResponses(responses []*Response) ([]byte, error) {
	if len(responses) == 1 {
		return MarshalResponse(responses[0])
	}
	return json.Marshal(responses)
}
