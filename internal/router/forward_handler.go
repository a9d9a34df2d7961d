package router

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mowind/proxyadmin-go/internal/downstream"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// ForwardHandler 把未注册的方法原样转发到节点
type ForwardHandler struct {
	*BaseHandler
	client downstream.ClientInterface
}

// NewForwardHandler 创建转发处理器
func NewForwardHandler(client downstream.ClientInterface, logger *logrus.Logger) *ForwardHandler {
	return &ForwardHandler{
		BaseHandler: NewBaseHandler("forward_handler", logger),
		client:      client,
	}
}

// Client 返回下游客户端，批量转发时使用
func (h *ForwardHandler) Client() downstream.ClientInterface {
	return h.client
}

// Handle 转发请求。下游错误按连接/超时/下游错误分类返回。
func (h *ForwardHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	h.LogRequest(request)

	logger := h.logger.WithFields(logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
	})

	response, err := h.client.ForwardRequest(ctx, request)
	if err != nil {
		logger.WithError(err).Error("Failed to forward request to downstream")
		return nil, err
	}

	h.LogResponse(request, response, nil)
	return response, nil
}
