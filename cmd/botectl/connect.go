package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/protocol/session"
	"github.com/danmuck/botectl/internal/tools"
	"github.com/rs/zerolog/log"
)

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *rootOptions) (appConfig, error) {
	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return appConfig{}, err
	}
	if opts.profile != "" {
		p, err := device.ProfileByName(opts.profile)
		if err != nil {
			return appConfig{}, err
		}
		cfg.Profile = p
	}
	if opts.mode != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(opts.mode))
	}
	if opts.address != "" {
		if cfg.Mode == modeDial {
			cfg.Address = opts.address
		} else {
			cfg.Listen = opts.address
		}
	}
	return cfg, cfg.validate()
}

// openSession establishes the device link described by cfg.
func openSession(ctx context.Context, cfg appConfig, runner tools.CommandRunner) (*session.Session, error) {
	switch cfg.Mode {
	case modeAccept:
		if cfg.ADB.Reverse {
			port, err := listenPort(cfg.Listen)
			if err != nil {
				return nil, err
			}
			if err := tools.ADBReverse(runner, cfg.ADB.Path, cfg.ADB.Serial, port); err != nil {
				return nil, err
			}
			log.Info().Msgf("botectl.openSession adb reverse port=%d serial=%q", port, cfg.ADB.Serial)
		}
		log.Info().Msgf("botectl.openSession waiting for agent listen=%q profile=%s", cfg.Listen, cfg.Profile.Name)
		return session.AcceptOne(ctx, cfg.Listen, cfg.Session)
	case modeDial:
		var opts []session.DialOption
		if cfg.Driver != "" {
			opts = append(opts, session.WithDriver(tools.ExecStarter{}, cfg.Driver, cfg.DriverArgs...))
		}
		log.Info().Msgf("botectl.openSession dialing address=%q profile=%s", cfg.Address, cfg.Profile.Name)
		return session.Dial(ctx, cfg.Address, cfg.Session, opts...)
	default:
		return nil, fmt.Errorf("botectl: unknown mode %q", cfg.Mode)
	}
}

func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("botectl: listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("botectl: adb reverse needs a fixed listen port, got %q", addr)
	}
	return port, nil
}
