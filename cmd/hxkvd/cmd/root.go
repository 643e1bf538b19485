package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the daemon shell's own version, independent of the data
// layer's on-disk format version (see datalayer.CurrentFormatVersion).
const Version = "0.1.0"

var RootCmd = &cobra.Command{
	Use:   "hxkvd",
	Short: "hxkv data layer daemon",
	Long: fmt.Sprintf(`hxkvd (v%s)

Runs the hxkv partitioned key-value data layer standalone: wires a schema
fixture and configuration to the store adapter, write engine, search
planner and background cleaner, and exposes a Prometheus metrics
endpoint. Does not speak any client wire protocol.`, Version),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hxkvd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hxkvd v%s\n", Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(serveCmd)
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
