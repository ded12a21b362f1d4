package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/script"
	"github.com/danmuck/botectl/internal/tools"
	"github.com/spf13/cobra"
)

func execCmd(opts *rootOptions) *cobra.Command {
	var untilNot string
	cmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Send one command to the agent and print its response",
		Example: `  botectl exec getWindowSize
  botectl exec click 100 200
  botectl exec --until-not=-1.0\|-1.0 findImage /sdcard/ok.png 0 0 0 0 0.9 0 0 255 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runExec(ctx, cfg, cmd.OutOrStdout(), args[0], args[1:], untilNot)
		},
	}
	cmd.Flags().StringVar(&untilNot, "until-not", "", "poll until the response differs from this value")
	return cmd
}

func runExec(ctx context.Context, cfg appConfig, out io.Writer, name string, rawArgs []string, untilNot string) error {
	s, err := openSession(ctx, cfg, tools.ExecRunner{})
	if err != nil {
		return err
	}
	defer s.Close()

	step := script.Step{Command: name, Args: parseArgs(rawArgs)}
	if untilNot != "" {
		step.UntilNot = &untilNot
	}
	r := &script.Runner{Invoker: device.New(s, cfg.Profile), Wait: s.ImplicitWait()}
	rep, err := r.Run(ctx, script.Script{Name: "exec", Steps: []script.Step{step}})
	if err != nil {
		return err
	}
	sr := rep.Steps[0]
	fmt.Fprintln(out, sr.Response)
	if sr.Attempts > 1 {
		fmt.Fprintf(os.Stderr, "%s after %d attempts in %s\n", sr.State, sr.Attempts, sr.Elapsed.Round(time.Millisecond))
	}
	return nil
}

func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, a := range raw {
		out[i] = a
	}
	return out
}
