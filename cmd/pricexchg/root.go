package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// NewRootCmd builds the pricexchg command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pricexchg",
		Short:         "Fixed price order matching engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the config file")

	root.AddCommand(newSimulateCmd(), newVersionCmd())
	return root
}
