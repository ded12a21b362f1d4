package main

import (
	"fmt"
	"os"

	"github.com/danmuck/botectl/internal/logging"
	"github.com/spf13/cobra"
)

// set at build time
var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
	profile    string
	mode       string
	address    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "botectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "botectl",
		Short: "Drive a remote automation agent over its framed TCP protocol",
		Long: `botectl holds one session with an Android or Windows automation agent.

The agent either dials in (mode "accept", optionally through adb reverse)
or is reached at a fixed address (mode "dial", optionally after launching
a local driver process).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "agent profile: android or windows")
	root.PersistentFlags().StringVar(&opts.mode, "mode", "", "session mode: accept or dial")
	root.PersistentFlags().StringVar(&opts.address, "address", "", "listen address (accept) or agent address (dial)")

	root.AddCommand(
		serveCmd(opts),
		execCmd(opts),
		runCmd(opts),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "botectl %s (%s)\n", version, commit)
		},
	}
}
