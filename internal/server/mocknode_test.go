package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// HandlerFunc 处理函数类型
type HandlerFunc func(params []json.RawMessage) (interface{}, error)

// MockNode 模拟节点：已解锁账户、一个 Proxy 合约的 owner() 和 allTokens()
type MockNode struct {
	server     *httptest.Server
	mu         sync.RWMutex
	handlers   map[string]HandlerFunc
	shouldFail bool

	owner   ethgo.Address
	sent    [][]byte
	methods []string
}

// NewMockNode 创建模拟节点，测试结束时关闭
func NewMockNode(t *testing.T) *MockNode {
	t.Helper()
	m := &MockNode{handlers: make(map[string]HandlerFunc)}
	m.registerDefaultHandlers()
	m.server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	t.Cleanup(m.server.Close)
	return m
}

func word(b []byte) string {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return hex.EncodeToString(out)
}

// registerDefaultHandlers 注册默认的 JSON-RPC 方法处理器
func (m *MockNode) registerDefaultHandlers() {
	m.RegisterHandler("web3_clientVersion", func(params []json.RawMessage) (interface{}, error) {
		return "MockNode/v1.0.0", nil
	})

	m.RegisterHandler("eth_chainId", func(params []json.RawMessage) (interface{}, error) {
		return "0x539", nil
	})

	m.RegisterHandler("eth_getTransactionCount", func(params []json.RawMessage) (interface{}, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return fmt.Sprintf("0x%x", len(m.sent)), nil
	})

	m.RegisterHandler("eth_sendTransaction", func(params []json.RawMessage) (interface{}, error) {
		var tx struct {
			Data string `json:"data"`
		}
		if len(params) != 1 || json.Unmarshal(params[0], &tx) != nil {
			return nil, fmt.Errorf("invalid params")
		}
		data, err := hex.DecodeString(strings.TrimPrefix(tx.Data, "0x"))
		if err != nil || len(data) < 4 {
			return nil, fmt.Errorf("invalid data")
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if bytes.Equal(data[:4], contracts.MethodSetOwner.ID()) && len(data) >= 36 {
			copy(m.owner[:], data[16:36])
		}
		m.sent = append(m.sent, data)
		return fmt.Sprintf("0x%064x", len(m.sent)), nil
	})

	m.RegisterHandler("eth_getTransactionReceipt", func(params []json.RawMessage) (interface{}, error) {
		var hash string
		if len(params) != 1 || json.Unmarshal(params[0], &hash) != nil {
			return nil, fmt.Errorf("missing transaction hash parameter")
		}
		return map[string]interface{}{
			"blockHash":        "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef",
			"blockNumber":      "0x123456",
			"transactionHash":  hash,
			"transactionIndex": "0x0",
			"gasUsed":          "0x5208",
			"status":           "0x1",
			"logs":             []interface{}{},
		}, nil
	})

	m.RegisterHandler("eth_call", func(params []json.RawMessage) (interface{}, error) {
		var call struct {
			Data string `json:"data"`
		}
		if len(params) < 1 || json.Unmarshal(params[0], &call) != nil {
			return nil, fmt.Errorf("invalid params")
		}
		selector := strings.TrimPrefix(call.Data, "0x")
		if len(selector) < 8 {
			return nil, fmt.Errorf("invalid data")
		}

		m.mu.RLock()
		defer m.mu.RUnlock()
		switch selector[:8] {
		case hex.EncodeToString(contracts.MethodOwner.ID()):
			return "0x" + word(m.owner[:]), nil
		case hex.EncodeToString(contracts.MethodAllTokens.ID()):
			// 空的 uint256[]
			return "0x" + word([]byte{0x20}) + word(nil), nil
		}
		return nil, fmt.Errorf("execution reverted")
	})

	m.RegisterHandler("eth_blockNumber", func(params []json.RawMessage) (interface{}, error) {
		return "0x123456", nil
	})
}

// RegisterHandler 注册自定义处理器
func (m *MockNode) RegisterHandler(method string, handler HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = handler
}

// SetShouldFail 设置是否应该失败
func (m *MockNode) SetShouldFail(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = shouldFail
}

// URL 返回服务器 URL
func (m *MockNode) URL() string {
	return m.server.URL
}

// Owner 返回当前记录的 owner
func (m *MockNode) Owner() ethgo.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// Methods 返回收到的方法名，按顺序
func (m *MockNode) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.methods...)
}

// handleRequest 处理 HTTP 请求
func (m *MockNode) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	fail := m.shouldFail
	m.mu.RUnlock()
	if fail {
		http.Error(w, "node unavailable", http.StatusBadGateway)
		return
	}

	var single jsonrpc.Request
	if err := json.Unmarshal(body, &single); err == nil {
		m.writeResponse(w, m.handleSingleRequest(&single))
		return
	}

	var batch []jsonrpc.Request
	if err := json.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
		m.writeResponse(w, jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest(nil)))
		return
	}
	responses := make([]*jsonrpc.Response, len(batch))
	for i := range batch {
		responses[i] = m.handleSingleRequest(&batch[i])
	}
	m.writeResponse(w, responses)
}

// handleSingleRequest 处理单个请求
func (m *MockNode) handleSingleRequest(request *jsonrpc.Request) *jsonrpc.Response {
	m.mu.Lock()
	m.methods = append(m.methods, request.Method)
	handler, exists := m.handlers[request.Method]
	m.mu.Unlock()

	if !exists {
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewMethodNotFound(request.Method))
	}

	var params []json.RawMessage
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewInvalidParams(nil))
		}
	}

	result, err := handler(params)
	if err != nil {
		return jsonrpc.NewErrorResponse(request.ID, &jsonrpc.Error{Code: 3, Message: err.Error()})
	}
	resp, _ := jsonrpc.NewResponse(request.ID, result)
	return resp
}

// writeResponse 写入响应
func (m *MockNode) writeResponse(w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
