package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_Single(t *testing.T) {
	data := `{"jsonrpc":"2.0","method":"hex_validate","params":["0xabc"],"id":1}`

	requests, err := ParseRequest([]byte(data))
	require.NoError(t, err)
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	assert.Equal(t, "hex_validate", req.Method)
	// JSON 数字默认解析为 float64
	assert.Equal(t, float64(1), req.ID)
	assert.JSONEq(t, `["0xabc"]`, string(req.Params))
}

func TestParseRequest_Batch(t *testing.T) {
	data := `[
		{"jsonrpc":"2.0","method":"hex_stripPrefix","params":["0x1"],"id":1},
		{"jsonrpc":"2.0","method":"admin_contracts","id":"two"}
	]`

	requests, err := ParseRequest([]byte(data))
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "two", requests[1].ID)
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `invalid json`},
		{"wrong version", `{"jsonrpc":"1.0","method":"hex_validate","id":1}`},
		{"empty method", `{"jsonrpc":"2.0","method":"","id":1}`},
		{"empty batch", `[]`},
		{"bad member in batch", `[{"jsonrpc":"2.0","method":"a","id":1},{"jsonrpc":"2.0","id":2}]`},
		{"object id", `{"jsonrpc":"2.0","method":"a","id":{"x":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseRequest_NullID(t *testing.T) {
	requests, err := ParseRequest([]byte(`{"jsonrpc":"2.0","method":"admin_contracts","id":null}`))
	require.NoError(t, err)
	assert.Nil(t, requests[0].ID)
}

func TestParseRequest_LeadingWhitespace(t *testing.T) {
	requests, err := ParseRequest([]byte("\n  [{\"jsonrpc\":\"2.0\",\"method\":\"hex_validate\",\"id\":1}]"))
	require.NoError(t, err)
	require.Len(t, requests, 1)

	_, err = ParseRequest([]byte(" [ ] "))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = ParseRequest([]byte("   "))
	assert.Error(t, err)
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(7, "eth_getTransactionCount", []interface{}{"0x01", "pending"})
	require.NoError(t, err)
	assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	assert.Equal(t, 7, req.ID)
	assert.JSONEq(t, `["0x01","pending"]`, string(req.Params))

	req, err = NewRequest(1, "eth_chainId", nil)
	require.NoError(t, err)
	assert.Nil(t, req.Params)

	_, err = NewRequest(1, "bad", []interface{}{make(chan int)})
	assert.Error(t, err)
}

func TestNewResponse(t *testing.T) {
	resp, err := NewResponse(1, map[string]string{"address": "0x00000000000000000000000000000000000000ab"})
	require.NoError(t, err)

	assert.Equal(t, JSONRPCVersion, resp.JSONRPC)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.ID)
	assert.JSONEq(t, `{"address":"0x00000000000000000000000000000000000000ab"}`, string(resp.Result))

	_, err = NewResponse(1, make(chan int))
	assert.Error(t, err)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("abc", NewInvalidParams(nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "abc", resp.ID)
	assert.Nil(t, resp.Result)
}

func TestMarshalResponses(t *testing.T) {
	one := &Response{JSONRPC: JSONRPCVersion, Result: json.RawMessage(`true`), ID: 1}
	two := &Response{JSONRPC: JSONRPCVersion, Result: json.RawMessage(`false`), ID: 2}

	data, err := MarshalResponses([]*Response{one})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":true,"id":1}`, string(data))

	data, err = MarshalResponses([]*Response{one, two})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"jsonrpc":"2.0","result":true,"id":1},{"jsonrpc":"2.0","result":false,"id":2}]`, string(data))
}

func TestNewServerError(t *testing.T) {
	err := NewServerError(-32010, "Transaction failed", map[string]string{"hash": "0x1"})
	assert.Equal(t, -32010, err.Code)
	assert.Equal(t, "Transaction failed", err.Message)

	// 超出保留范围时退化为内部错误
	err = NewServerError(-1, "out of range", nil)
	assert.Equal(t, CodeInternalError, err.Code)
	assert.Equal(t, "out of range", err.Message)
}

func TestIsServerError(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{CodeServerErrorStart, true},
		{CodeServerErrorEnd, true},
		{-32050, true},
		{-31999, false},
		{-32100, false},
		{CodeInvalidParams, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsServerError(tt.code), "code %d", tt.code)
	}
}

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode int
		wantData interface{}
	}{
		{"parse", NewParseError("unexpected EOF"), CodeParseError, "unexpected EOF"},
		{"invalid request", NewInvalidRequest(nil), CodeInvalidRequest, nil},
		{"method not found", NewMethodNotFound("admin_burn"), CodeMethodNotFound, map[string]string{"method": "admin_burn"}},
		{"method not found without name", NewMethodNotFound(""), CodeMethodNotFound, nil},
		{"invalid params", NewInvalidParams("bad"), CodeInvalidParams, "bad"},
		{"internal", NewInternalError(nil), CodeInternalError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantData, tt.err.Data)
		})
	}

	// 每次调用返回独立的实例
	a, b := NewInternalError(nil), NewInternalError(nil)
	a.Data = "changed"
	assert.Nil(t, b.Data)
	assert.True(t, IsServerError(CodeRequestCancelled))
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "JSON-RPC error -32601: Method not found", NewMethodNotFound("").Error())

	withData := NewCustomError(-32000, "execution reverted", "0x08c379a0")
	assert.Equal(t, "JSON-RPC error -32000: execution reverted (data: 0x08c379a0)", withData.Error())
}
