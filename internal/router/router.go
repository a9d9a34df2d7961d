package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// Handler defines a JSON-RPC method handler interface.
//
// Implementations of this interface can be registered with the Router
// to handle specific JSON-RPC methods.
type Handler interface {
	// Handle processes a JSON-RPC request.
	//
	// A returned error is converted into a JSON-RPC error response by the
	// router: *jsonrpc.Error is used as is, everything else goes through
	// the application error taxonomy.
	Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error)

	// Method returns the JSON-RPC method name this handler supports.
	//
	// Returns:
	//   - string: The method name (e.g., "hex_formatAddress")
	Method() string
}

// MaxBatchSize defines the maximum number of requests allowed in a batch
const MaxBatchSize = 100

// DefaultBatchWorkerCount defines the default number of workers for batch request processing
const DefaultBatchWorkerCount = 50

// DefaultMaxRequestSize 默认最大请求体 10MB
const DefaultMaxRequestSize = 10 * 1024 * 1024

// Router routes JSON-RPC requests to appropriate handlers.
//
// This router supports:
//   - Method-based handler registration
//   - Default handler for unregistered methods
//   - Batch requests on a bounded worker pool
//   - Request size limiting
type Router struct {
	handlers       map[string]Handler
	defaultHandler Handler // 默认处理器，处理未注册的方法
	mu             sync.RWMutex
	logger         *logrus.Logger
	maxRequestSize int64 // 最大请求体大小（字节）
}

// NewRouter creates a new JSON-RPC router with default settings.
//
// Default max request size is 10MB.
func NewRouter(logger *logrus.Logger) *Router {
	return NewRouterWithMaxSize(logger, DefaultMaxRequestSize)
}

// NewRouterWithMaxSize creates a new JSON-RPC router with custom max request size.
//
// Parameters:
//   - logger: The logger to use for request logging
//   - maxRequestSize: Maximum allowed request body size in bytes
//
// Returns:
//   - *Router: A new router instance
func NewRouterWithMaxSize(logger *logrus.Logger, maxRequestSize int64) *Router {
	return &Router{
		handlers:       make(map[string]Handler),
		logger:         logger,
		maxRequestSize: maxRequestSize,
	}
}

// SetDefaultHandler sets the default handler for unregistered methods.
func (r *Router) SetDefaultHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultHandler = handler
	r.logger.Info("Default handler set")
}

// Register registers a JSON-RPC method handler.
//
// The handler's Method() return value is used as the registration key.
//
// Returns:
//   - error: An error if handler method is empty or already registered
func (r *Router) Register(handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := handler.Method()
	if method == "" {
		return fmt.Errorf("handler method name cannot be empty")
	}

	if _, exists := r.handlers[method]; exists {
		return fmt.Errorf("handler for method %s already registered", method)
	}

	r.handlers[method] = handler
	r.logger.WithField("method", method).Debug("Registered JSON-RPC handler")
	return nil
}

// Unregister removes a handler for the specified method.
func (r *Router) Unregister(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, method)
	r.logger.WithField("method", method).Debug("Unregistered JSON-RPC handler")
}

// resolve 查找方法对应的处理器，未注册时返回默认处理器
func (r *Router) resolve(method string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if handler, found := r.handlers[method]; found {
		return handler, true
	}
	if r.defaultHandler != nil {
		return r.defaultHandler, true
	}
	return nil, false
}

// errorResponse 把处理器返回的错误转换为 JSON-RPC 错误响应
func errorResponse(id interface{}, err error) *jsonrpc.Response {
	if jsonErr, ok := err.(*jsonrpc.Error); ok {
		return jsonrpc.NewErrorResponse(id, jsonErr)
	}
	return jsonrpc.NewErrorResponse(id, apperrors.ConvertToJSONRPC(err))
}

// Route routes a single JSON-RPC request to the appropriate handler.
//
// This method handles method lookup, handler execution, and error response
// generation. The response ID always matches the request ID.
func (r *Router) Route(ctx context.Context, request *jsonrpc.Request) *jsonrpc.Response {
	if request == nil {
		r.logger.Warn("Received nil JSON-RPC request")
		return jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest(nil))
	}

	logger := r.logger.WithFields(logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
	})
	logger.Debug("Routing request")

	handler, found := r.resolve(request.Method)
	if !found {
		logger.Warn("Method not found")
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewMethodNotFound(request.Method))
	}

	response, err := handler.Handle(ctx, request)
	if err != nil {
		logger.WithError(err).Warn("Handler returned error")
		return errorResponse(request.ID, err)
	}

	if response == nil {
		logger.Error("Handler returned nil response")
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewInternalError("empty handler response"))
	}

	response.ID = request.ID
	response.JSONRPC = jsonrpc.JSONRPCVersion
	return response
}

// RouteBatch routes a batch of JSON-RPC requests.
//
// Each request in the batch is routed independently using a worker pool.
//
// Returns:
//   - []*jsonrpc.Response: Ordered responses matching request order
func (r *Router) RouteBatch(ctx context.Context, requests []jsonrpc.Request) []*jsonrpc.Response {
	if len(requests) == 0 {
		return []*jsonrpc.Response{
			jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest(nil)),
		}
	}

	if len(requests) > MaxBatchSize {
		r.logger.WithField("count", len(requests)).Warn("Batch size exceeds limit")
		return []*jsonrpc.Response{batchTooLargeResponse()}
	}

	responses := make([]*jsonrpc.Response, len(requests))
	indices := make([]int, len(requests))
	for i := range indices {
		indices[i] = i
	}
	r.routeIndices(ctx, requests, indices, responses)
	return responses
}

func batchTooLargeResponse() *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidParams(
		fmt.Sprintf("Batch size exceeds maximum limit of %d", MaxBatchSize)))
}

// routeIndices 在工作池中路由 requests[indices]，结果写入 responses 的相同位置
func (r *Router) routeIndices(ctx context.Context, requests []jsonrpc.Request, indices []int, responses []*jsonrpc.Response) {
	taskCh := make(chan int, len(indices))
	for _, idx := range indices {
		taskCh <- idx
	}
	close(taskCh)

	workerCount := DefaultBatchWorkerCount
	if len(indices) < workerCount {
		workerCount = len(indices)
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for idx := range taskCh {
				if ctx.Err() != nil {
					responses[idx] = jsonrpc.NewErrorResponse(requests[idx].ID,
						jsonrpc.NewServerError(jsonrpc.CodeRequestCancelled, "Request cancelled", ctx.Err().Error()))
					continue
				}

				func() {
					defer func() {
						if p := recover(); p != nil {
							r.logger.WithField("worker_id", workerID).WithField("panic", p).Error("Worker panic recovered")
							responses[idx] = jsonrpc.NewErrorResponse(requests[idx].ID,
								jsonrpc.NewInternalError("Processing failed"))
						}
					}()
					responses[idx] = r.Route(ctx, &requests[idx])
				}()
			}
		}(i)
	}
	wg.Wait()
}

// GetRegisteredMethods returns all registered method names, sorted.
func (r *Router) GetRegisteredMethods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.handlers))
	for method := range r.handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// HasHandler checks if a handler is registered for the given method.
func (r *Router) HasHandler(method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, found := r.handlers[method]
	return found
}

// HandleHTTPRequest reads a JSON-RPC request or batch from the HTTP body,
// routes it and writes the response.
//
// In a batch, methods without a registered handler are forwarded to the
// node in a single downstream batch when the default handler is a
// *ForwardHandler; registered methods run on the worker pool.
func (r *Router) HandleHTTPRequest(w http.ResponseWriter, req *http.Request) {
	logger := r.logger.WithField("remote_addr", req.RemoteAddr)

	limitedBody := http.MaxBytesReader(w, req.Body, r.maxRequestSize)
	body, err := io.ReadAll(limitedBody)
	if err != nil {
		logger.WithError(err).WithField("max_size_bytes", r.maxRequestSize).Warn("Request body too large")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		if _, err := w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"Request entity too large"},"id":null}`)); err != nil {
			logger.WithError(err).Error("Failed to write error response")
		}
		return
	}

	requests, err := jsonrpc.ParseRequest(body)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse JSON-RPC request")
		r.writeResponses(w, logger, []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(err.Error()))})
		return
	}

	if len(requests) > MaxBatchSize {
		logger.WithField("count", len(requests)).Warn("Batch size exceeds limit")
		r.writeResponses(w, logger, []*jsonrpc.Response{batchTooLargeResponse()})
		return
	}

	ctx := req.Context()
	if len(requests) == 1 {
		r.writeResponses(w, logger, []*jsonrpc.Response{r.Route(ctx, &requests[0])})
		return
	}
	r.writeResponses(w, logger, r.routeMixedBatch(ctx, requests, logger))
}

// routeMixedBatch 本地方法走工作池，其余方法合并为一个下游批量请求
func (r *Router) routeMixedBatch(ctx context.Context, requests []jsonrpc.Request, logger *logrus.Entry) []*jsonrpc.Response {
	r.mu.RLock()
	fwdHandler, canForward := r.defaultHandler.(*ForwardHandler)
	r.mu.RUnlock()

	responses := make([]*jsonrpc.Response, len(requests))
	localIndices := make([]int, 0, len(requests))
	forwardIndices := make([]int, 0)
	forwardRequests := make([]jsonrpc.Request, 0)

	for i := range requests {
		if !canForward || r.HasHandler(requests[i].Method) {
			localIndices = append(localIndices, i)
			continue
		}
		forwardIndices = append(forwardIndices, i)
		forwardRequests = append(forwardRequests, requests[i])
	}

	logger.WithFields(logrus.Fields{
		"local":     len(localIndices),
		"forwarded": len(forwardRequests),
	}).Debug("Routing batch requests")

	if len(localIndices) > 0 {
		r.routeIndices(ctx, requests, localIndices, responses)
	}

	if len(forwardRequests) > 0 {
		batchResponses, err := fwdHandler.Client().ForwardBatchRequest(ctx, forwardRequests)
		for i, idx := range forwardIndices {
			switch {
			case err != nil:
				responses[idx] = errorResponse(requests[idx].ID, err)
			case i < len(batchResponses):
				resp := batchResponses[i]
				responses[idx] = &resp
			default:
				responses[idx] = jsonrpc.NewErrorResponse(requests[idx].ID, jsonrpc.NewInternalError(nil))
			}
		}
	}
	return responses
}

func (r *Router) writeResponses(w http.ResponseWriter, logger *logrus.Entry, responses []*jsonrpc.Response) {
	data, err := jsonrpc.MarshalResponses(responses)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal JSON-RPC responses")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.WithError(err).Error("Failed to write response")
	}
}
