package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/botectl/internal/auth"
	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/observability"
	"github.com/danmuck/botectl/internal/protocol/session"
	"github.com/danmuck/botectl/internal/script"
	"github.com/danmuck/botectl/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		adminAddr  string
		scriptPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hold a device session and expose the admin endpoints",
		Long: `serve opens the device session, serves /healthz, /metrics and
/sessions on the admin address, and optionally replays a script once the
agent is connected. It runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			if adminAddr != "" {
				cfg.AdminListen = adminAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, scriptPath)
		},
	}
	cmd.Flags().StringVar(&adminAddr, "admin", "", "admin HTTP listen address")
	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML script to run after connecting")
	return cmd
}

// sessionHolder publishes the live session to the admin handlers.
type sessionHolder struct {
	s       atomic.Pointer[session.Session]
	profile string
}

func (h *sessionHolder) status() []observability.SessionStatus {
	s := h.s.Load()
	if s == nil {
		return nil
	}
	wait := s.ImplicitWait()
	return []observability.SessionStatus{{
		ID:           s.ID(),
		Remote:       s.RemoteAddr(),
		Profile:      h.profile,
		Connected:    s.Connected(),
		WaitTimeout:  wait.Wait,
		PollInterval: wait.Interval,
	}}
}

func adminGuard(token string) auth.Validator {
	if token == "" {
		return nil
	}
	return auth.StaticToken{Token: token}
}

func runServe(ctx context.Context, cfg appConfig, scriptPath string) error {
	var sc *script.Script
	if scriptPath != "" {
		loaded, err := script.Load(scriptPath)
		if err != nil {
			return err
		}
		sc = &loaded
	}

	holder := &sessionHolder{profile: cfg.Profile.Name}
	srv := &http.Server{
		Addr:              cfg.AdminListen,
		Handler:           observability.NewAdminRouter(log.Logger, holder.status, adminGuard(cfg.AdminToken)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("botectl.serve admin listen=%q", cfg.AdminListen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s, err := openSession(gctx, cfg, tools.ExecRunner{})
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		defer s.Close()
		holder.s.Store(s)

		if sc != nil {
			r := &script.Runner{Invoker: device.New(s, cfg.Profile), Wait: s.ImplicitWait()}
			rep, err := r.Run(gctx, *sc)
			if err != nil && gctx.Err() == nil {
				return err
			}
			log.Info().Msgf("botectl.serve script=%q steps=%d", rep.Name, len(rep.Steps))
		}
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if err != nil {
		log.Error().Msgf("botectl.serve err=%v", err)
	}
	return err
}
