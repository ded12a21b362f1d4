package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/protocol/session"
)

const (
	modeAccept = "accept"
	modeDial   = "dial"
)

type appConfig struct {
	Profile     device.Profile
	Mode        string
	Listen      string
	Address     string
	AdminListen string
	AdminToken  string
	Session     session.Config
	ADB         adbConfig
	Driver      string
	DriverArgs  []string
}

type adbConfig struct {
	Path    string
	Serial  string
	Reverse bool
}

func defaultAppConfig() appConfig {
	return appConfig{
		Profile:     device.Android,
		Mode:        modeAccept,
		Listen:      "0.0.0.0:16678",
		Address:     "127.0.0.1:16678",
		AdminListen: "127.0.0.1:7070",
		Session:     session.DefaultConfig(),
		ADB:         adbConfig{Path: "adb"},
	}
}

type fileConfig struct {
	Profile            string        `toml:"profile"`
	Mode               string        `toml:"mode"`
	Listen             string        `toml:"listen"`
	Address            string        `toml:"address"`
	AdminListen        string        `toml:"admin_listen"`
	AdminToken         string        `toml:"admin_token"`
	Wait               string        `toml:"wait"`
	Interval           string        `toml:"interval"`
	ReadTimeout        string        `toml:"read_timeout"`
	WriteTimeout       string        `toml:"write_timeout"`
	ConnectTimeout     string        `toml:"connect_timeout"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
	SecurityMode       string        `toml:"security_mode"`
	Driver             string        `toml:"driver"`
	DriverArgs         []string      `toml:"driver_args"`
	ADB                fileADBConfig `toml:"adb"`
	TLS                fileTLSConfig `toml:"tls"`
}

type fileADBConfig struct {
	Path    string `toml:"path"`
	Serial  string `toml:"serial"`
	Reverse bool   `toml:"reverse"`
}

type fileTLSConfig struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	CAFile             string `toml:"ca_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// loadAppConfig applies the keys present in path over the defaults. An
// empty path returns the defaults.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load botectl config: %w", err)
	}

	if meta.IsDefined("profile") {
		p, err := device.ProfileByName(raw.Profile)
		if err != nil {
			return appConfig{}, err
		}
		cfg.Profile = p
	}
	if meta.IsDefined("mode") {
		cfg.Mode = strings.ToLower(strings.TrimSpace(raw.Mode))
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminListen = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"wait", raw.Wait, &cfg.Session.Wait.Wait},
		{"interval", raw.Interval, &cfg.Session.Wait.Interval},
		{"read_timeout", raw.ReadTimeout, &cfg.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Session.WriteTimeout},
		{"connect_timeout", raw.ConnectTimeout, &cfg.Session.ConnectTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("max_connect_attempts") {
		cfg.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("security_mode") {
		cfg.Session.SecurityMode = session.SecurityMode(strings.TrimSpace(raw.SecurityMode))
	}
	if meta.IsDefined("driver") {
		cfg.Driver = strings.TrimSpace(raw.Driver)
	}
	if meta.IsDefined("driver_args") {
		cfg.DriverArgs = append([]string(nil), raw.DriverArgs...)
	}

	if meta.IsDefined("adb", "path") {
		cfg.ADB.Path = strings.TrimSpace(raw.ADB.Path)
	}
	if meta.IsDefined("adb", "serial") {
		cfg.ADB.Serial = strings.TrimSpace(raw.ADB.Serial)
	}
	if meta.IsDefined("adb", "reverse") {
		cfg.ADB.Reverse = raw.ADB.Reverse
	}

	if meta.IsDefined("tls") {
		cfg.Session.TLS = session.TLSConfig{
			Enabled:            raw.TLS.Enabled,
			Mutual:             raw.TLS.Mutual,
			CertFile:           strings.TrimSpace(raw.TLS.CertFile),
			KeyFile:            strings.TrimSpace(raw.TLS.KeyFile),
			CAFile:             strings.TrimSpace(raw.TLS.CAFile),
			ServerName:         strings.TrimSpace(raw.TLS.ServerName),
			InsecureSkipVerify: raw.TLS.InsecureSkipVerify,
		}
	}

	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	switch c.Mode {
	case modeAccept:
		if c.Listen == "" {
			return fmt.Errorf("botectl config: listen is required in %s mode", modeAccept)
		}
	case modeDial:
		if c.Address == "" {
			return fmt.Errorf("botectl config: address is required in %s mode", modeDial)
		}
	default:
		return fmt.Errorf("botectl config: unknown mode %q", c.Mode)
	}
	return nil
}
