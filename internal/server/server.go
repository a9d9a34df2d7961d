package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/router"
)

const readyTimeout = 5 * time.Second

// Server 表示 HTTP 服务器
type Server struct {
	config        *config.Config
	router        *gin.Engine
	jsonRPCRouter *router.Router
	client        downstream.ClientInterface
	server        *http.Server
	listener      net.Listener
	logger        *logrus.Logger
}

// New 创建新的 HTTP 服务器
func New(cfg *config.Config) (*Server, error) {
	return NewBuilder(cfg).Build()
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler 处理健康检查请求
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readyHandler 检查节点是否可用
func readyHandler(client downstream.ClientInterface, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
			defer cancel()

			if err := client.TestConnection(ctx); err != nil {
				logger.WithError(err).Warn("Node is not reachable")
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  apperrors.ConvertError(err).Message,
					"time":   time.Now().UTC().Format(time.RFC3339),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// jsonRPCHandler 把请求交给 JSON-RPC 路由器
func jsonRPCHandler(jsonRPCRouter *router.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		jsonRPCRouter.HandleHTTPRequest(c.Writer, c.Request)
	}
}

// Start 启动 HTTP 服务器。监听失败时直接返回错误。
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.HTTP.Host, s.config.HTTP.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"addr":    listener.Addr().String(),
		"methods": s.jsonRPCRouter.GetRegisteredMethods(),
		"auth":    s.config.HTTP.APIKey != "",
	}).Info("Starting HTTP server")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Addr 返回实际监听的地址，未启动时为空
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅停止 HTTP 服务器并关闭节点连接
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	if s.client != nil {
		if closeErr := s.client.Close(); closeErr != nil {
			s.logger.WithError(closeErr).Warn("Failed to close node client")
		}
	}
	return err
}

// getLogLevel 将字符串日志级别转换为 logrus.Level
func getLogLevel(level string) logrus.Level {
	switch level {
	case config.LogLevelDebug:
		return logrus.DebugLevel
	case config.LogLevelInfo:
		return logrus.InfoLevel
	case config.LogLevelWarn:
		return logrus.WarnLevel
	case config.LogLevelError:
		return logrus.ErrorLevel
	case config.LogLevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
