// Package main provides the Blitz convolution driver: it runs one
// convolution pass on a chosen device and algorithm, checks it against the
// host and reports throughput.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blitz",
		Short:         "Cross-device 2D convolution driver",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newConvCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Blitz %s\n", version)
		},
	}
}
