package router

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/admin"
	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

var (
	testFrom  = ethgo.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	testProxy = ethgo.HexToAddress("0x1111111111111111111111111111111111111111")
)

// stubChain 只应答 eth_call，按选择器返回数据
type stubChain struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     int
}

func (s *stubChain) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubChain) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func (s *stubChain) ChainID(ctx context.Context) (uint64, error) { s.touch(); return 1, nil }

func (s *stubChain) TransactionCount(ctx context.Context, addr ethgo.Address) (uint64, error) {
	s.touch()
	return 0, nil
}

func (s *stubChain) Call(ctx context.Context, msg *downstream.CallMsg) ([]byte, error) {
	s.touch()
	return s.responses[hex.EncodeToString(msg.Data[:4])], nil
}

func (s *stubChain) SendTransaction(ctx context.Context, tx *downstream.TxArgs) (ethgo.Hash, error) {
	s.touch()
	return ethgo.Hash{1}, nil
}

func (s *stubChain) TransactionReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	s.touch()
	return &ethgo.Receipt{TransactionHash: hash, Status: 1}, nil
}

func (s *stubChain) WaitForReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	return s.TransactionReceipt(ctx, hash)
}

func (s *stubChain) GetLogs(ctx context.Context, filter *downstream.LogFilter) ([]*ethgo.Log, error) {
	s.touch()
	return nil, nil
}

// stubNode 记录转发的请求
type stubNode struct {
	mu       sync.Mutex
	single   []string
	batches  [][]string
	batchErr error
}

func (n *stubNode) ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.single = append(n.single, req.Method)
	return jsonrpc.NewResponse(req.ID, "0x10")
}

func (n *stubNode) ForwardBatchRequest(ctx context.Context, requests []jsonrpc.Request) ([]jsonrpc.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.batchErr != nil {
		return nil, n.batchErr
	}
	methods := make([]string, len(requests))
	out := make([]jsonrpc.Response, len(requests))
	for i, req := range requests {
		methods[i] = req.Method
		resp, _ := jsonrpc.NewResponse(req.ID, "forwarded_"+req.Method)
		out[i] = *resp
	}
	n.batches = append(n.batches, methods)
	return out, nil
}

func (n *stubNode) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	return nil
}
func (n *stubNode) TestConnection(ctx context.Context) error { return nil }
func (n *stubNode) GetEndpoint() string                      { return "http://node" }
func (n *stubNode) Close() error                             { return nil }

func newTestRouter(chain *stubChain, node *stubNode) *Router {
	set := &contracts.DeployedContractSet{}
	set.Set(contracts.KindProxy, testProxy)
	executor := admin.NewExecutor(chain, testFrom, set, nil)

	var client downstream.ClientInterface
	if node != nil {
		client = node
	}
	return NewRouterFactory(quietLogger()).CreateRouter(executor, client)
}

func call(t *testing.T, r *Router, method, params string) *jsonrpc.Response {
	t.Helper()
	req := &jsonrpc.Request{JSONRPC: "2.0", Method: method, ID: 1}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return r.Route(context.Background(), req)
}

func resultOf(t *testing.T, resp *jsonrpc.Response, target interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error %+v", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, target))
}

func TestCreateRouter_Methods(t *testing.T) {
	r := newTestRouter(&stubChain{}, nil)
	methods := r.GetRegisteredMethods()
	for _, m := range append(append([]string{}, HexMethods...), AdminMethods...) {
		assert.Contains(t, methods, m)
	}

	resp := call(t, r, "eth_blockNumber", "[]")
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, resp.Error.Code)
}

func TestHexHandler(t *testing.T) {
	r := newTestRouter(&stubChain{}, nil)

	tests := []struct {
		name   string
		method string
		params string
		want   interface{}
	}{
		{"strip lower", MethodHexStripPrefix, `["0xAB"]`, "AB"},
		{"strip upper", MethodHexStripPrefix, `["0XAB"]`, "AB"},
		{"strip none", MethodHexStripPrefix, `["AB"]`, "AB"},
		{"validate default", MethodHexValidate, `["0xff"]`, true},
		{"validate explicit", MethodHexValidate, `["abcd", 4]`, true},
		{"validate null max", MethodHexValidate, `["abcd", null]`, true},
		{"format address", MethodHexFormatAddress, `["1"]`, "0x0000000000000000000000000000000000000001"},
		{"index ok", MethodHexValidateIndex, `[4294967295]`, true},
		{"index string", MethodHexValidateIndex, `["12"]`, true},
		{"index negative", MethodHexValidateIndex, `[-1]`, false},
		{"index too big", MethodHexValidateIndex, `[4294967296]`, false},
		{"derive", MethodHexDeriveAddress, `["0x00000000000000000000000100000000000000000000000000000000000000ff"]`, "0x00000000000000000000000000000000000000ff"},
		{"normalize", MethodHexNormalizeAddress, `["0xabc"]`, "0x0000000000000000000000000000000000000aBc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got interface{}
			resultOf(t, call(t, r, tt.method, tt.params), &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexHandler_ValidationErrors(t *testing.T) {
	r := newTestRouter(&stubChain{}, nil)

	tests := []struct {
		name     string
		method   string
		params   string
		wantRule string
	}{
		{"empty", MethodHexValidate, `["0x"]`, "empty"},
		{"charset", MethodHexValidate, `["0xg1"]`, "charset"},
		{"whitespace", MethodHexValidate, `[" ab"]`, "charset"},
		{"too long", MethodHexValidate, `["abcde", 4]`, "too_long"},
		{"address too long", MethodHexFormatAddress, `["` + strings.Repeat("1", 41) + `"]`, "address_length"},
		{"uid too long", MethodHexDeriveAddress, `["` + strings.Repeat("1", 65) + `"]`, "too_long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, r, tt.method, tt.params)
			require.NotNil(t, resp.Error)
			assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
			data, ok := resp.Error.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.wantRule, data["rule"])
			assert.Equal(t, "VALIDATION_ERROR", data["type"])
		})
	}
}

func TestHexHandler_BadParams(t *testing.T) {
	r := newTestRouter(&stubChain{}, nil)

	for _, params := range []string{``, `[]`, `["a","b"]`, `{"value":"a"}`, `[true]`} {
		resp := call(t, r, MethodHexStripPrefix, params)
		require.NotNil(t, resp.Error, "params %s", params)
		assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code, "params %s", params)
	}

	resp := call(t, r, MethodHexValidate, `["ab", 0]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)

	resp = call(t, r, MethodHexValidateIndex, `[1.5]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
}

func TestAdminHandler_Contracts(t *testing.T) {
	r := newTestRouter(&stubChain{}, nil)

	var got map[string]string
	resultOf(t, call(t, r, MethodAdminContracts, `[]`), &got)
	assert.Equal(t, map[string]string{"proxy": testProxy.String()}, got)

	var ops []OperationInfo
	resultOf(t, call(t, r, MethodAdminOperations, ``), &ops)
	assert.Len(t, ops, len(admin.Kinds()))
}

func TestAdminHandler_Execute(t *testing.T) {
	t.Run("query tokens", func(t *testing.T) {
		// uint256[] 空数组：offset 0x20，长度 0
		empty := make([]byte, 64)
		empty[31] = 0x20
		chain := &stubChain{responses: map[string][]byte{
			hex.EncodeToString(contracts.MethodAllTokens.ID()): empty,
		}}
		r := newTestRouter(chain, nil)

		var result admin.Result
		resultOf(t, call(t, r, MethodAdminExecute, `[{"kind":"queryAllTokens","params":{}}]`), &result)
		assert.Equal(t, admin.KindQueryAllTokens, result.Kind)
		assert.Contains(t, result.Logs, "Valid Proxy address: "+testProxy.String())
		assert.Contains(t, result.Logs, "No tokens registered")
	})

	t.Run("validation error makes no node calls", func(t *testing.T) {
		chain := &stubChain{}
		r := newTestRouter(chain, nil)

		resp := call(t, r, MethodAdminExecute, `[{"kind":"modifyToken","params":{"index":4294967296,"token":"0x01"}}]`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
		data := resp.Error.Data.(map[string]interface{})
		assert.Equal(t, "index_range", data["rule"])
		assert.Contains(t, data, "logs")
		assert.Zero(t, chain.count())
	})

	t.Run("bad request shape", func(t *testing.T) {
		r := newTestRouter(&stubChain{}, nil)
		for _, params := range []string{`[]`, `["setMerkle"]`, `[{"params":{}}]`, `[{"kind":"setMerkle","params":[]}]`, `[{"kind":"setMerkle","params":{"root":true}}]`, `[{"kind":"nope"}]`} {
			resp := call(t, r, MethodAdminExecute, params)
			require.NotNil(t, resp.Error, params)
			assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code, params)
		}
	})
}

func TestForwardHandler(t *testing.T) {
	node := &stubNode{}
	r := newTestRouter(&stubChain{}, node)

	var got string
	resultOf(t, call(t, r, "eth_blockNumber", `[]`), &got)
	assert.Equal(t, "0x10", got)
	assert.Equal(t, []string{"eth_blockNumber"}, node.single)
}

func TestForwardHandler_DownstreamError(t *testing.T) {
	node := &failingNode{err: downstream.ConnectionError(errors.New("refused"))}
	r := NewRouterFactory(quietLogger()).CreateRouter(nil, node)

	resp := call(t, r, "eth_chainId", `[]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeServerErrorStart, resp.Error.Code)
	assert.Equal(t, "CONNECTION_ERROR", resp.Error.Data.(map[string]interface{})["type"])
}

type failingNode struct {
	stubNode
	err error
}

func (n *failingNode) ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	return nil, n.err
}

func TestRouter_MixedBatch(t *testing.T) {
	node := &stubNode{}
	r := newTestRouter(&stubChain{}, node)

	body := `[
		{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]},
		{"jsonrpc":"2.0","id":2,"method":"hex_stripPrefix","params":["0x12"]},
		{"jsonrpc":"2.0","id":3,"method":"eth_chainId","params":[]}
	]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.HandleHTTPRequest(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out []jsonrpc.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 3)

	assert.JSONEq(t, `"forwarded_eth_blockNumber"`, string(out[0].Result))
	assert.JSONEq(t, `"12"`, string(out[1].Result))
	assert.JSONEq(t, `"forwarded_eth_chainId"`, string(out[2].Result))
	assert.Equal(t, [][]string{{"eth_blockNumber", "eth_chainId"}}, node.batches)
}

func TestRouter_MixedBatch_ForwardError(t *testing.T) {
	node := &stubNode{batchErr: downstream.TimeoutError(errors.New("deadline"))}
	r := newTestRouter(&stubChain{}, node)

	body := `[{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber"},{"jsonrpc":"2.0","id":2,"method":"hex_stripPrefix","params":["0x12"]}]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.HandleHTTPRequest(w, req)

	var out []jsonrpc.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Error)
	assert.Equal(t, "TIMEOUT_ERROR", out[0].Error.Data.(map[string]interface{})["type"])
	assert.Nil(t, out[1].Error)
}
