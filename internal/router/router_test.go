package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// mockHandler 是 Handler 接口的 mock 实现
type mockHandler struct {
	method     string
	handleFunc func(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error)
	err        error
}

func (m *mockHandler) Method() string {
	return m.method
}

func (m *mockHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.handleFunc != nil {
		return m.handleFunc(ctx, request)
	}
	return jsonrpc.NewResponse(request.ID, "mock_result")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRouter_Register(t *testing.T) {
	router := NewRouter(quietLogger())

	handler := &mockHandler{method: "hex_stripPrefix"}
	if err := router.Register(handler); err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	// 重复注册失败
	if err := router.Register(handler); err == nil {
		t.Error("Expected error for duplicate registration, got nil")
	}

	if err := router.Register(&mockHandler{method: ""}); err == nil {
		t.Error("Expected error for empty method name, got nil")
	}
}

func TestRouter_Route(t *testing.T) {
	router := NewRouter(quietLogger())
	err := router.Register(&mockHandler{
		method: "hex_stripPrefix",
		handleFunc: func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			// ID 由路由器覆盖
			return jsonrpc.NewResponse("other", "ab")
		},
	})
	if err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	request := &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "hex_stripPrefix",
		ID:      "test_id",
		Params:  json.RawMessage(`["0xab"]`),
	}

	response := router.Route(context.Background(), request)
	if response == nil {
		t.Fatal("Expected response, got nil")
	}
	if response.Error != nil {
		t.Fatalf("Expected no error, got: %v", response.Error)
	}
	if response.ID != request.ID {
		t.Errorf("Expected ID %v, got %v", request.ID, response.ID)
	}

	var result string
	if err := json.Unmarshal(response.Result, &result); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}
	if result != "ab" {
		t.Errorf("Expected result 'ab', got '%s'", result)
	}
}

func TestRouter_Route_Errors(t *testing.T) {
	router := NewRouter(quietLogger())
	handlers := []*mockHandler{
		{method: "plain_error", err: fmt.Errorf("boom")},
		{method: "jsonrpc_error", err: &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "Invalid parameters"}},
		{method: "app_error", err: apperrors.MissingAddress("Proxy")},
		{method: "nil_response", handleFunc: func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			return nil, nil
		}},
	}
	for _, h := range handlers {
		if err := router.Register(h); err != nil {
			t.Fatalf("Failed to register handler: %v", err)
		}
	}

	tests := []struct {
		method   string
		wantCode int
	}{
		{"plain_error", jsonrpc.CodeInternalError},
		{"jsonrpc_error", jsonrpc.CodeInvalidParams},
		{"app_error", jsonrpc.CodeInvalidParams},
		{"nil_response", jsonrpc.CodeInternalError},
		{"unknown_method", jsonrpc.CodeMethodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			response := router.Route(context.Background(), &jsonrpc.Request{JSONRPC: "2.0", Method: tt.method, ID: 1})
			if response.Error == nil {
				t.Fatal("Expected error response")
			}
			if response.Error.Code != tt.wantCode {
				t.Errorf("Expected error code %d, got %d", tt.wantCode, response.Error.Code)
			}
			if response.ID != 1 {
				t.Errorf("Expected ID 1, got %v", response.ID)
			}
		})
	}

	if response := router.Route(context.Background(), nil); response.Error == nil || response.Error.Code != jsonrpc.CodeInvalidRequest {
		t.Errorf("Expected invalid request for nil request, got %+v", response)
	}
}

func TestRouter_DefaultHandler(t *testing.T) {
	router := NewRouter(quietLogger())
	router.SetDefaultHandler(&mockHandler{method: "forward_handler"})

	response := router.Route(context.Background(), &jsonrpc.Request{JSONRPC: "2.0", Method: "eth_blockNumber", ID: 7})
	if response.Error != nil {
		t.Fatalf("Expected default handler to answer, got %v", response.Error)
	}
	if router.HasHandler("eth_blockNumber") {
		t.Error("default handler must not register methods")
	}
}

func TestRouter_RouteBatch(t *testing.T) {
	router := NewRouter(quietLogger())
	err := router.Register(&mockHandler{
		method: "hex_validateIndex",
		handleFunc: func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			return jsonrpc.NewResponse(req.ID, fmt.Sprintf("result_for_%v", req.ID))
		},
	})
	if err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	requests := make([]jsonrpc.Request, 60)
	for i := range requests {
		requests[i] = jsonrpc.Request{JSONRPC: "2.0", Method: "hex_validateIndex", ID: fmt.Sprintf("id%d", i)}
	}
	requests[10].Method = "unknown_method"

	responses := router.RouteBatch(context.Background(), requests)
	if len(responses) != len(requests) {
		t.Fatalf("Expected %d responses, got %d", len(requests), len(responses))
	}

	for i, response := range responses {
		if response == nil {
			t.Fatalf("Response %d is nil", i)
		}
		if response.ID != requests[i].ID {
			t.Errorf("Response %d: expected ID %v, got %v", i, requests[i].ID, response.ID)
		}
		if i == 10 {
			if response.Error == nil || response.Error.Code != jsonrpc.CodeMethodNotFound {
				t.Errorf("Response 10: expected method not found, got %+v", response.Error)
			}
			continue
		}
		var result string
		if err := json.Unmarshal(response.Result, &result); err != nil || result != fmt.Sprintf("result_for_id%d", i) {
			t.Errorf("Response %d: unexpected result %s", i, response.Result)
		}
	}
}

func TestRouter_RouteBatch_Limits(t *testing.T) {
	router := NewRouter(quietLogger())

	responses := router.RouteBatch(context.Background(), []jsonrpc.Request{})
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != jsonrpc.CodeInvalidRequest {
		t.Errorf("Expected single invalid request response for empty batch, got %+v", responses)
	}

	tooMany := make([]jsonrpc.Request, MaxBatchSize+1)
	responses = router.RouteBatch(context.Background(), tooMany)
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != jsonrpc.CodeInvalidParams {
		t.Errorf("Expected invalid params for oversized batch, got %+v", responses)
	}
}

func TestRouter_GetRegisteredMethods(t *testing.T) {
	router := NewRouter(quietLogger())

	for _, method := range []string{"hex_validate", "admin_execute", "hex_formatAddress"} {
		if err := router.Register(&mockHandler{method: method}); err != nil {
			t.Fatalf("Failed to register handler %s: %v", method, err)
		}
	}

	got := router.GetRegisteredMethods()
	want := []string{"admin_execute", "hex_formatAddress", "hex_validate"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}

	router.Unregister("hex_validate")
	if router.HasHandler("hex_validate") {
		t.Error("Expected method to be unregistered")
	}
	if !router.HasHandler("admin_execute") {
		t.Error("Expected admin_execute to stay registered")
	}
}

func TestRouter_HandleHTTPRequest(t *testing.T) {
	router := NewRouter(quietLogger())
	if err := router.Register(&mockHandler{method: "hex_stripPrefix"}); err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.HandleHTTPRequest(w, req)
		return w.Result()
	}

	t.Run("single", func(t *testing.T) {
		resp := post(`{"jsonrpc":"2.0","id":1,"method":"hex_stripPrefix","params":["0x1"]}`)
		defer resp.Body.Close()
		var out jsonrpc.Response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if out.Error != nil || string(out.Result) != `"mock_result"` {
			t.Errorf("Unexpected response %+v", out)
		}
	})

	t.Run("batch keeps order", func(t *testing.T) {
		resp := post(`[{"jsonrpc":"2.0","id":1,"method":"hex_stripPrefix"},{"jsonrpc":"2.0","id":2,"method":"missing"}]`)
		defer resp.Body.Close()
		var out []jsonrpc.Response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("Expected 2 responses, got %d", len(out))
		}
		if out[0].Error != nil || out[1].Error == nil || out[1].Error.Code != jsonrpc.CodeMethodNotFound {
			t.Errorf("Unexpected batch responses %+v", out)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		resp := post(`{not json`)
		defer resp.Body.Close()
		var out jsonrpc.Response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if out.Error == nil || out.Error.Code != jsonrpc.CodeParseError {
			t.Errorf("Expected parse error, got %+v", out)
		}
	})
}

func TestRouter_MaxRequestSize(t *testing.T) {
	router := NewRouterWithMaxSize(quietLogger(), 1024)
	if err := router.Register(&mockHandler{method: "hex_validate"}); err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	tests := []struct {
		name       string
		padding    int
		wantStatus int
	}{
		{"request within limit", 512, http.StatusOK},
		{"request exceeds limit", 2048, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"jsonrpc":"2.0","id":1,"method":"hex_validate","params":[]}` + strings.Repeat(" ", tt.padding)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			w := httptest.NewRecorder()

			router.HandleHTTPRequest(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}
