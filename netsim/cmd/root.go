// Package cmd provides the command-line interface of netsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/netsim/config"
)

var envFiles []string

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "netsim",
		Short: "netsim is a parallel discrete-event network simulator.",
		Long: `netsim simulates hosts exchanging packets over a network graph ` +
			`with shaped interfaces, using a pool of worker threads that ` +
			`advance in rounds.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnv(envFiles...)
		},
	}

	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil,
		"Environment files to load, .env by default")

	root.AddCommand(newRunCmd(), newTopologyCmd(), newReportCmd())

	return root
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
