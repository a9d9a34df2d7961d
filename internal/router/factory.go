package router

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mowind/proxyadmin-go/internal/admin"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	"github.com/mowind/proxyadmin-go/internal/jsonrpc"
)

// RouterFactory 路由器工厂，简化路由器的创建和配置
type RouterFactory struct {
	logger *logrus.Logger
}

// NewRouterFactory 创建路由器工厂
func NewRouterFactory(logger *logrus.Logger) *RouterFactory {
	return &RouterFactory{
		logger: logger,
	}
}

// CreateRouter 创建完整配置的路由器。executor 为 nil 时不注册 admin_* 方法，
// client 为 nil 时不转发未知方法。
func (f *RouterFactory) CreateRouter(executor *admin.Executor, client downstream.ClientInterface) *Router {
	router := NewRouter(f.logger)

	// 一个处理器处理多个方法，按方法名分别注册
	hexHandler := NewHexHandler(f.logger)
	for _, method := range HexMethods {
		f.register(router, hexHandler, method)
	}

	if executor != nil {
		adminHandler := NewAdminHandler(executor, f.logger)
		for _, method := range AdminMethods {
			f.register(router, adminHandler, method)
		}
	}

	if client != nil {
		router.SetDefaultHandler(NewForwardHandler(client, f.logger))
	}

	return router
}

func (f *RouterFactory) register(router *Router, handler Handler, method string) {
	if err := router.Register(&MethodHandler{handler: handler, method: method}); err != nil {
		f.logger.WithError(err).WithField("method", method).Error("Failed to register handler")
	}
}

// MethodHandler 包装处理器，使其符合 Handler 接口
type MethodHandler struct {
	handler Handler
	method  string
}

// Method 返回方法名
func (m *MethodHandler) Method() string {
	return m.method
}

// Handle 处理请求
func (m *MethodHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	return m.handler.Handle(ctx, request)
}
