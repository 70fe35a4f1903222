package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	xchg "github.com/0x5487/pricexchg"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			if verbose {
				values, _ := json.MarshalIndent(struct {
					Engine   string `json:"engine"`
					Snapshot int    `json:"snapshot_schema"`
				}{
					Engine:   xchg.EngineVersion,
					Snapshot: xchg.SnapshotSchemaVersion,
				}, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(values))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), xchg.EngineVersion)
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show snapshot schema version")
	return cmd
}
