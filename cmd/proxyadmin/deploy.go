package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mowind/proxyadmin-go/internal/admin"
	"github.com/mowind/proxyadmin-go/internal/contracts"
)

func newDeployCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the missing Proxy, Withdraw and Verifier contracts",
		Long: `Deploy Proxy(chainId, initialRoot), Withdraw and Verifier in order.

Contracts already known from the configuration or --state-file are skipped, so a
failed deployment can be resumed. With --state-file the resulting addresses are
written back, also after a failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			set, err := a.contractSet(cfg)
			if err != nil {
				return err
			}
			bytecode, err := admin.LoadBytecode(&cfg.Deploy, set)
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

			report, deployErr := admin.NewDeployer(c.eth, c.from, c.logger).Deploy(ctx, set, &admin.DeployRequest{
				Bytecode:    bytecode,
				InitialRoot: cfg.Deploy.InitialRoot,
			})
			if err := printResult(cmd.OutOrStdout(), report, asJSON); err != nil {
				return err
			}

			if a.stateFile != "" && report != nil && report.Set != nil {
				if err := contracts.SaveState(a.stateFile, report.Set); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Contract addresses written to", a.stateFile)
			}
			return deployErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}
