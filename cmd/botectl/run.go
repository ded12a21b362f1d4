package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/script"
	"github.com/danmuck/botectl/internal/tools"
	"github.com/spf13/cobra"
)

func runCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Replay a YAML automation script against the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := script.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScript(ctx, cfg, cmd.OutOrStdout(), sc)
		},
	}
}

func runScript(ctx context.Context, cfg appConfig, out io.Writer, sc script.Script) error {
	s, err := openSession(ctx, cfg, tools.ExecRunner{})
	if err != nil {
		return err
	}
	defer s.Close()

	r := &script.Runner{Invoker: device.New(s, cfg.Profile), Wait: s.ImplicitWait()}
	rep, runErr := r.Run(ctx, sc)
	writeReport(out, rep)
	return runErr
}

func writeReport(out io.Writer, rep script.Report) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "STEP\tCOMMAND\tSTATE\tATTEMPTS\tELAPSED\tRESPONSE\n")
	for _, st := range rep.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			st.Index, st.Command, st.State, st.Attempts, st.Elapsed.Round(time.Millisecond), truncate(st.Response, 48))
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
