package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/contracts"
	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// Config 表示应用程序的完整配置
type Config struct {
	// HTTP 服务器配置
	HTTP HTTPConfig `mapstructure:"http"`

	// 区块链节点配置
	RPC RPCConfig `mapstructure:"rpc"`

	// 发送交易的账户
	Account AccountConfig `mapstructure:"account"`

	// 已部署的合约地址
	Contracts ContractsConfig `mapstructure:"contracts"`

	// 部署参数
	Deploy DeployConfig `mapstructure:"deploy"`

	// 日志配置
	Log LogConfig `mapstructure:"log"`
}

// HTTPConfig 定义 HTTP 服务器配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// APIKey 非空时 JSON-RPC 端点要求 X-API-Key 或 Bearer 认证
	APIKey string `mapstructure:"api-key"`
}

// Validate 验证 HTTP 配置
func (c *HTTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("http-host is required")
	}
	if c.Port <= 0 || c.Port > MaxPort {
		return fmt.Errorf("http-port must be between 1 and %d", MaxPort)
	}
	return nil
}

// RPCConfig 定义区块链节点配置
type RPCConfig struct {
	HTTPHost       string `mapstructure:"http-host"` // 完整的host，如 http://127.0.0.1 或 https://rpc.example.com
	HTTPPort       int    `mapstructure:"http-port"` // 端口，host中已包含端口时可以为0
	HTTPPath       string `mapstructure:"http-path"`
	TimeoutSeconds int    `mapstructure:"timeout-seconds"`
	PollIntervalMs int    `mapstructure:"poll-interval-ms"`
}

// Validate 验证节点配置
func (c *RPCConfig) Validate() error {
	if c.HTTPHost == "" {
		return fmt.Errorf("rpc-http-host is required")
	}
	if !strings.HasPrefix(c.HTTPHost, "http://") && !strings.HasPrefix(c.HTTPHost, "https://") {
		return fmt.Errorf("rpc-http-host must start with http:// or https://")
	}
	if c.HTTPPort < 0 || c.HTTPPort > MaxPort {
		return fmt.Errorf("rpc-http-port must be between 0 and %d", MaxPort)
	}
	if c.HTTPPath == "" {
		c.HTTPPath = DefaultRPCPath
	}
	if !strings.HasPrefix(c.HTTPPath, "/") {
		c.HTTPPath = "/" + c.HTTPPath
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("rpc-timeout-seconds must not be negative")
	}
	if c.PollIntervalMs < 0 {
		return fmt.Errorf("rpc-poll-interval-ms must not be negative")
	}
	return nil
}

// BuildURL 构建完整的节点URL
func (c *RPCConfig) BuildURL() string {
	baseURL := c.HTTPHost
	if c.HTTPPort > 0 && !hasPort(baseURL) {
		baseURL = strings.TrimSuffix(baseURL, "/")
		baseURL = fmt.Sprintf("%s:%d", baseURL, c.HTTPPort)
	}
	return baseURL + c.HTTPPath
}

// Timeout 返回单次请求超时，未设置时使用默认值
func (c *RPCConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultRPCTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval 返回回执轮询间隔
func (c *RPCConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return DefaultPollIntervalMs * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// hasPort 检查URL是否已经包含端口
func hasPort(url string) bool {
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	lastColon := strings.LastIndex(url, ":")
	if lastColon == -1 {
		return false
	}

	portPart := url[lastColon+1:]
	if portPart == "" || strings.Contains(portPart, "/") {
		return false
	}
	for _, ch := range portPart {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// AccountConfig 定义发送交易的账户，由节点解锁
type AccountConfig struct {
	From string `mapstructure:"from"`
}

// Validate 验证账户配置，账户可以为空（仅离线命令）
func (c *AccountConfig) Validate() error {
	if c.From == "" {
		return nil
	}
	if _, err := hexutil.NormalizeAddress(c.From); err != nil {
		return fmt.Errorf("account-from: %w", err)
	}
	return nil
}

// Address 返回账户地址
func (c *AccountConfig) Address() (ethgo.Address, error) {
	if c.From == "" {
		return ethgo.Address{}, fmt.Errorf("account-from is required")
	}
	return hexutil.NormalizeAddress(c.From)
}

// ContractsConfig 已部署的合约地址，均为可选
type ContractsConfig struct {
	Proxy    string `mapstructure:"proxy"`
	Withdraw string `mapstructure:"withdraw"`
	Verifier string `mapstructure:"verifier"`
}

// Validate 验证已配置的地址
func (c *ContractsConfig) Validate() error {
	_, err := c.Set()
	return err
}

// Set 转换为合约集合
func (c *ContractsConfig) Set() (*contracts.DeployedContractSet, error) {
	set := &contracts.DeployedContractSet{}
	entries := []struct {
		kind  contracts.Kind
		value string
	}{
		{contracts.KindProxy, c.Proxy},
		{contracts.KindWithdraw, c.Withdraw},
		{contracts.KindVerifier, c.Verifier},
	}
	for _, e := range entries {
		if e.value == "" {
			continue
		}
		addr, err := hexutil.NormalizeAddress(e.value)
		if err != nil {
			return nil, fmt.Errorf("contracts-%s: %w", strings.ToLower(string(e.kind)), err)
		}
		set.Set(e.kind, addr)
	}
	return set, nil
}

// DeployConfig 部署参数
type DeployConfig struct {
	ProxyBytecode    string `mapstructure:"proxy-bytecode"`
	WithdrawBytecode string `mapstructure:"withdraw-bytecode"`
	VerifierBytecode string `mapstructure:"verifier-bytecode"`
	InitialRoot      string `mapstructure:"initial-root"`
}

// Validate 验证部署参数
func (c *DeployConfig) Validate() error {
	if c.InitialRoot == "" {
		return nil
	}
	if err := hexutil.ValidateHexString(c.InitialRoot, RootHexLength); err != nil {
		return fmt.Errorf("deploy-initial-root: %w", err)
	}
	return nil
}

// BytecodePath 返回合约对应的字节码文件路径
func (c *DeployConfig) BytecodePath(kind contracts.Kind) string {
	switch kind {
	case contracts.KindProxy:
		return c.ProxyBytecode
	case contracts.KindWithdraw:
		return c.WithdrawBytecode
	case contracts.KindVerifier:
		return c.VerifierBytecode
	}
	return ""
}

// LogConfig 定义日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	if !validLogLevels[strings.ToLower(c.Level)] {
		return fmt.Errorf("log-level must be one of: debug, info, warn, error, fatal, got: %s", c.Level)
	}
	if !validLogFormats[strings.ToLower(c.Format)] {
		return fmt.Errorf("log-format must be one of: json, text, got: %s", c.Format)
	}
	return nil
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	// 设置默认值
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = DefaultHTTPHost
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	validators := []Validator{&c.HTTP, &c.RPC, &c.Account, &c.Contracts, &c.Deploy, &c.Log}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// String 返回配置的摘要
func (c *Config) String() string {
	return fmt.Sprintf(
		"HTTP: {Host: %s, Port: %d, Auth: %t}, "+
			"RPC: {URL: %s, Timeout: %s, PollInterval: %s}, "+
			"Account: {From: %s}, "+
			"Contracts: {Proxy: %s, Withdraw: %s, Verifier: %s}, "+
			"Log: {Level: %s, Format: %s}",
		c.HTTP.Host, c.HTTP.Port, c.HTTP.APIKey != "",
		c.RPC.BuildURL(), c.RPC.Timeout(), c.RPC.PollInterval(),
		orNone(c.Account.From),
		orNone(c.Contracts.Proxy), orNone(c.Contracts.Withdraw), orNone(c.Contracts.Verifier),
		c.Log.Level, c.Log.Format,
	)
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
