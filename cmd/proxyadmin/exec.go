package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/umbracle/ethgo"

	"github.com/mowind/proxyadmin-go/internal/admin"
	"github.com/mowind/proxyadmin-go/internal/config"
	"github.com/mowind/proxyadmin-go/internal/downstream"
	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
)

// chain 是 exec 和 deploy 共用的节点连接
type chain struct {
	client *downstream.Client
	eth    *downstream.EthClient
	from   ethgo.Address
	logger apperrors.Logger
}

func newChain(cfg *config.Config) (*chain, error) {
	from, err := cfg.Account.Address()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	client := downstream.NewClient(&cfg.RPC, logger.Underlying())
	return &chain{
		client: client,
		eth:    downstream.NewEthClient(client, cfg.RPC.PollInterval()),
		from:   from,
		logger: logger,
	}, nil
}

// signalContext 在 SIGINT/SIGTERM 时取消，等待回执的操作随之结束
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseParams 解析 key=value 形式的参数
func parseParams(raw []string) (admin.Params, error) {
	params := admin.Params{}
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", kv)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("duplicate --param %q", key)
		}
		params[key] = value
	}
	return params, nil
}

func newExecCmd(a *app) *cobra.Command {
	var (
		rawParams []string
		asJSON    bool
	)

	kinds := admin.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = fmt.Sprintf("  %s (%s)", k, strings.Join(admin.ParamKeys(k), ", "))
	}

	cmd := &cobra.Command{
		Use:   "exec <kind>",
		Short: "Run one administrative operation",
		Long:  "Run one administrative operation and print its log.\n\nOperations:\n" + strings.Join(names, "\n"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			// 先校验操作种类和参数名，再连接节点
			op, err := admin.NewOperation(args[0], params)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			set, err := a.contractSet(cfg)
			if err != nil {
				return err
			}
			c, err := newChain(cfg)
			if err != nil {
				return err
			}
			defer c.client.Close()

			ctx, cancel := signalContext()
			defer cancel()

			result, err := admin.NewExecutor(c.eth, c.from, set, c.logger).Execute(ctx, op)
			if printErr := printResult(cmd.OutOrStdout(), result, asJSON); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "operation parameter as key=value, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// printResult 输出日志，json 模式下输出完整结果
func printResult(w io.Writer, result interface{}, asJSON bool) error {
	if result == nil {
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var logs []string
	switch r := result.(type) {
	case *admin.Result:
		if r == nil {
			return nil
		}
		logs = r.Logs
	case *admin.DeployReport:
		if r == nil || r.Result == nil {
			return nil
		}
		logs = r.Logs
	}
	for _, line := range logs {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
