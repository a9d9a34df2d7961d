package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	ginlogrus "github.com/toorop/gin-logrus"

	"github.com/mowind/proxyadmin-go/internal/admin"
	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
	"github.com/mowind/proxyadmin-go/internal/router"
)

// 不需要认证、也不记录访问日志的路径
var publicPaths = []string{"/health", "/ready"}

// Builder 服务器构建器
type Builder struct {
	cfg       *config.Config
	contracts *contracts.DeployedContractSet
	logger    apperrors.Logger
}

// NewBuilder 创建新的服务器构建器
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithContracts 使用给定的合约集合，未设置时使用配置中的地址
func (b *Builder) WithContracts(set *contracts.DeployedContractSet) *Builder {
	b.contracts = set
	return b
}

// Build 构建服务器
func (b *Builder) Build() (*Server, error) {
	b.setGinMode()
	logger := b.createLogger()

	client := downstream.NewClient(&b.cfg.RPC, logger.Underlying())
	executor, err := b.createExecutor(client)
	if err != nil {
		return nil, err
	}

	jsonRPCRouter := router.NewRouterFactory(logger.Underlying()).CreateRouter(executor, client)

	s := &Server{
		config:        b.cfg,
		router:        b.createGinRouter(jsonRPCRouter, client),
		jsonRPCRouter: jsonRPCRouter,
		client:        client,
		logger:        logger.Underlying(),
	}
	return s, nil
}

// setGinMode 设置 gin 模式
func (b *Builder) setGinMode() {
	if b.cfg.Log.Level == config.LogLevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// createExecutor 创建管理操作执行器。未配置账户时不提供 admin_* 方法。
func (b *Builder) createExecutor(client downstream.ClientInterface) (*admin.Executor, error) {
	if b.cfg.Account.From == "" {
		b.createLogger().Warnw("No account configured, admin methods are disabled")
		return nil, nil
	}

	from, err := b.cfg.Account.Address()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeConfig, apperrors.ErrConfig.Code, "invalid account")
	}

	set := b.contracts
	if set == nil {
		if set, err = b.cfg.Contracts.Set(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeConfig, apperrors.ErrConfig.Code, "invalid contract addresses")
		}
	}

	eth := downstream.NewEthClient(client, b.cfg.RPC.PollInterval())
	return admin.NewExecutor(eth, from, set, b.createLogger()), nil
}

// createGinRouter 创建 gin 路由器。jsonRPCRouter 为 nil 时不提供 JSON-RPC 端点，
// client 为 nil 时 /ready 不检查节点。
func (b *Builder) createGinRouter(jsonRPCRouter *router.Router, client downstream.ClientInterface) *gin.Engine {
	logger := b.createLogger().Underlying()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ginlogrus.Logger(logger, publicPaths...))
	engine.Use(CORSMiddleware())
	engine.Use(RequestIDMiddleware())
	engine.Use(AuthMiddleware(b.cfg.HTTP.APIKey != "", b.cfg.HTTP.APIKey, publicPaths))

	engine.GET("/health", healthHandler)
	engine.GET("/ready", readyHandler(client, logger))
	if jsonRPCRouter != nil {
		engine.POST("/", jsonRPCHandler(jsonRPCRouter))
	}

	return engine
}

// createLogger 创建日志器，同一个 Builder 只创建一次
func (b *Builder) createLogger() apperrors.Logger {
	if b.logger != nil {
		return b.logger
	}

	logger, err := apperrors.NewLogger(&apperrors.LoggerConfig{
		Level:  b.cfg.Log.Level,
		Format: b.cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		fallback := logrus.New()
		fallback.SetLevel(getLogLevel(b.cfg.Log.Level))
		fallback.SetFormatter(&logrus.JSONFormatter{})
		logger = apperrors.FromLogrus(fallback)
	}

	b.logger = logger
	return logger
}
