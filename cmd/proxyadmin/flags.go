package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mowind/proxyadmin-go/internal/config"
)

// Flag 定义命令行标志
type Flag struct {
	Name         string
	DefaultValue interface{}
	Description  string
	BindTo       string // viper 键名
}

// flags 定义所有命令行标志，所有子命令共用
var flags = []Flag{
	// HTTP 服务器配置
	{
		Name:         "http-host",
		DefaultValue: config.DefaultHTTPHost,
		Description:  "HTTP server host",
		BindTo:       "http.host",
	},
	{
		Name:         "http-port",
		DefaultValue: config.DefaultHTTPPort,
		Description:  "HTTP server port",
		BindTo:       "http.port",
	},
	{
		Name:         "http-api-key",
		DefaultValue: "",
		Description:  "API key required on the JSON-RPC endpoint (X-API-Key or Bearer), empty disables auth",
		BindTo:       "http.api-key",
	},

	// 节点配置
	{
		Name:         "rpc-http-host",
		DefaultValue: config.DefaultRPCHost,
		Description:  "Blockchain node URL (http:// or https://)",
		BindTo:       "rpc.http-host",
	},
	{
		Name:         "rpc-http-port",
		DefaultValue: config.DefaultRPCPort,
		Description:  "Blockchain node port, ignored when the URL has one",
		BindTo:       "rpc.http-port",
	},
	{
		Name:         "rpc-http-path",
		DefaultValue: config.DefaultRPCPath,
		Description:  "Blockchain node path",
		BindTo:       "rpc.http-path",
	},
	{
		Name:         "rpc-timeout-seconds",
		DefaultValue: config.DefaultRPCTimeoutSeconds,
		Description:  "Node request timeout in seconds",
		BindTo:       "rpc.timeout-seconds",
	},
	{
		Name:         "rpc-poll-interval-ms",
		DefaultValue: config.DefaultPollIntervalMs,
		Description:  "Receipt polling interval in milliseconds",
		BindTo:       "rpc.poll-interval-ms",
	},

	// 账户与合约
	{
		Name:         "account-from",
		DefaultValue: "",
		Description:  "Operator address, unlocked on the node",
		BindTo:       "account.from",
	},
	{
		Name:         "contracts-proxy",
		DefaultValue: "",
		Description:  "Deployed Proxy contract address",
		BindTo:       "contracts.proxy",
	},
	{
		Name:         "contracts-withdraw",
		DefaultValue: "",
		Description:  "Deployed Withdraw contract address",
		BindTo:       "contracts.withdraw",
	},
	{
		Name:         "contracts-verifier",
		DefaultValue: "",
		Description:  "Deployed Verifier contract address",
		BindTo:       "contracts.verifier",
	},

	// 部署参数
	{
		Name:         "deploy-proxy-bytecode",
		DefaultValue: "",
		Description:  "Path of the Proxy bytecode file",
		BindTo:       "deploy.proxy-bytecode",
	},
	{
		Name:         "deploy-withdraw-bytecode",
		DefaultValue: "",
		Description:  "Path of the Withdraw bytecode file",
		BindTo:       "deploy.withdraw-bytecode",
	},
	{
		Name:         "deploy-verifier-bytecode",
		DefaultValue: "",
		Description:  "Path of the Verifier bytecode file",
		BindTo:       "deploy.verifier-bytecode",
	},
	{
		Name:         "deploy-initial-root",
		DefaultValue: "",
		Description:  "Initial merkle root passed to the Proxy constructor (64 hex digits)",
		BindTo:       "deploy.initial-root",
	},

	// 日志配置
	{
		Name:         "log-level",
		DefaultValue: config.DefaultLogLevel,
		Description:  "Log level (debug, info, warn, error, fatal)",
		BindTo:       "log.level",
	},
	{
		Name:         "log-format",
		DefaultValue: config.DefaultLogFormat,
		Description:  "Log format (text, json)",
		BindTo:       "log.format",
	},
}

// registerFlags 注册所有命令行标志
func registerFlags(cmd *cobra.Command, v *viper.Viper) error {
	for _, flag := range flags {
		switch d := flag.DefaultValue.(type) {
		case string:
			cmd.PersistentFlags().String(flag.Name, d, flag.Description)
		case int:
			cmd.PersistentFlags().Int(flag.Name, d, flag.Description)
		default:
			return fmt.Errorf("unsupported flag type: %T for flag %s", d, flag.Name)
		}

		if err := v.BindPFlag(flag.BindTo, cmd.PersistentFlags().Lookup(flag.Name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	return nil
}
