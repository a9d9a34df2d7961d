package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/contracts"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
)

// app 保存命令共用的状态
type app struct {
	v         *viper.Viper
	cfgFile   string
	stateFile string
}

// Execute 执行根命令
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "proxyadmin",
		Short: "proxyadmin administers Proxy, Withdraw and Verifier contracts",
		Long: `proxyadmin deploys and administers the Proxy contract family through a JSON-RPC node.

It provides:
1. A JSON-RPC server with hex_* helpers, admin_* operations and forwarding to the node
2. Offline hex validation and formatting commands
3. One-shot administrative operations and contract deployment`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.proxyadmin.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.stateFile, "state-file", "", "YAML file holding deployed contract addresses")

	if err := registerFlags(rootCmd, a.v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newHexCmd(),
		newExecCmd(a),
		newDeployCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// initConfig 初始化配置
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".proxyadmin")
		a.v.SetConfigType("yaml")
	}

	a.v.AutomaticEnv()
	a.v.SetEnvPrefix("PROXYADMIN")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := a.v.ReadInConfig(); err == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", a.v.ConfigFileUsed())
	} else if a.cfgFile != "" {
		return fmt.Errorf("failed to read config file %s: %w", a.cfgFile, err)
	}
	return nil
}

// loadConfig 加载并验证配置
func (a *app) loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return &cfg, nil
}

// contractSet 合并配置中的地址与状态文件，状态文件优先
func (a *app) contractSet(cfg *config.Config) (*contracts.DeployedContractSet, error) {
	set, err := cfg.Contracts.Set()
	if err != nil {
		return nil, err
	}
	if a.stateFile == "" {
		return set, nil
	}
	if _, err := os.Stat(a.stateFile); os.IsNotExist(err) {
		return set, nil
	}

	state, err := contracts.LoadState(a.stateFile)
	if err != nil {
		return nil, err
	}
	for _, kind := range contracts.Kinds {
		if addr := state.Get(kind); addr != nil {
			set.Set(kind, *addr)
		}
	}
	return set, nil
}

// newLogger 按配置创建日志器，输出到 stderr
func newLogger(cfg *config.Config) (apperrors.Logger, error) {
	return apperrors.NewLogger(&apperrors.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
}
