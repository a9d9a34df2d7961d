package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mowind/proxyadmin-go/internal/hexutil"
)

// newHexCmd 离线的 hex 校验与格式化，不需要节点
func newHexCmd() *cobra.Command {
	hexCmd := &cobra.Command{
		Use:   "hex",
		Short: "Validate and format hex values offline",
	}

	var maxLength int
	validateCmd := &cobra.Command{
		Use:   "validate <value>",
		Short: "Check that a value is a hex string of at most --max-length digits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := hexutil.ValidateHexString(args[0], maxLength); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	validateCmd.Flags().IntVar(&maxLength, "max-length", hexutil.DefaultMaxHexLength, "maximum number of hex digits")

	hexCmd.AddCommand(
		hexValueCmd("strip <value>", "Remove a leading 0x/0X prefix", func(value string) (string, error) {
			return hexutil.StripHexPrefix(value), nil
		}),
		validateCmd,
		hexValueCmd("format-address <value>", "Left-pad a hex value to a 40 digit address", hexutil.FormatAddress),
		hexValueCmd("validate-index <index>", "Check that a decimal index fits uint32", func(value string) (string, error) {
			index, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "", fmt.Errorf("index must be a decimal integer: %w", err)
			}
			return strconv.FormatBool(hexutil.ValidateIndex(index)), nil
		}),
		hexValueCmd("derive-address <uid>", "Extract the address from the low 160 bits of a token uid", hexutil.DeriveAddressFromPackedUID),
		hexValueCmd("normalize <value>", "Validate, pad and checksum an address", func(value string) (string, error) {
			addr, err := hexutil.NormalizeAddress(value)
			if err != nil {
				return "", err
			}
			return addr.String(), nil
		}),
	)
	return hexCmd
}

func hexValueCmd(use, short string, fn func(value string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := fn(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
