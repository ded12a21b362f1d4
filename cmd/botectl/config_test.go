package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/device"
	"github.com/danmuck/botectl/internal/protocol/session"
)

func TestLoadAppConfigExample(t *testing.T) {
	cfg, err := loadAppConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Profile.Name != device.Android.Name {
		t.Fatalf("unexpected profile: %q", cfg.Profile.Name)
	}
	if cfg.Mode != modeAccept || cfg.Listen != "0.0.0.0:16678" {
		t.Fatalf("unexpected mode/listen: %q %q", cfg.Mode, cfg.Listen)
	}
	if cfg.AdminListen != "127.0.0.1:7070" {
		t.Fatalf("unexpected admin listen: %q", cfg.AdminListen)
	}
	if cfg.Session.Wait.Wait != 5*time.Second || cfg.Session.Wait.Interval != 250*time.Millisecond {
		t.Fatalf("unexpected wait: %+v", cfg.Session.Wait)
	}
	if cfg.Session.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.Session.ReadTimeout)
	}
	if cfg.Session.MaxConnectAttempts != 3 {
		t.Fatalf("unexpected max connect attempts: %d", cfg.Session.MaxConnectAttempts)
	}
	if cfg.Session.SecurityMode != session.SecurityModeDevelopment {
		t.Fatalf("unexpected security mode: %q", cfg.Session.SecurityMode)
	}
	if !cfg.ADB.Reverse || cfg.ADB.Serial != "emulator-5554" {
		t.Fatalf("unexpected adb config: %+v", cfg.ADB)
	}
	if cfg.Session.TLS.Enabled {
		t.Fatalf("expected tls disabled")
	}
}

func TestLoadAppConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `profile = "windows"
mode = "dial"
address = "127.0.0.1:26678"
driver = "WindowsDriver.exe"
driver_args = ["127.0.0.1", "26678"]
`)
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultAppConfig()
	if !cfg.Profile.ModeFlag {
		t.Fatalf("expected windows profile")
	}
	if cfg.Address != "127.0.0.1:26678" || cfg.Driver != "WindowsDriver.exe" || len(cfg.DriverArgs) != 2 {
		t.Fatalf("unexpected dial config: %+v", cfg)
	}
	if cfg.Session.Wait != def.Session.Wait {
		t.Fatalf("wait overridden unexpectedly: %+v", cfg.Session.Wait)
	}
	if cfg.Session.ReadTimeout != def.Session.ReadTimeout {
		t.Fatalf("read timeout overridden unexpectedly: %v", cfg.Session.ReadTimeout)
	}
	if cfg.ADB.Path != "adb" {
		t.Fatalf("unexpected adb path: %q", cfg.ADB.Path)
	}
}

func TestLoadAppConfigErrors(t *testing.T) {
	cases := map[string]string{
		"bad duration": `wait = "soon"`,
		"bad profile":  `profile = "ios"`,
		"bad mode":     `mode = "mesh"`,
		"bad toml":     `wait = `,
	}
	for name, body := range cases {
		if _, err := loadAppConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestResolveConfigFlagOverrides(t *testing.T) {
	cfg, err := resolveConfig(&rootOptions{profile: "windows", mode: "dial", address: "10.0.0.2:1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Profile.Name != "windows" || cfg.Address != "10.0.0.2:1" {
		t.Fatalf("unexpected resolved config: %+v", cfg)
	}
	cfg, err = resolveConfig(&rootOptions{address: "0.0.0.0:9"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9" {
		t.Fatalf("expected listen override, got %q", cfg.Listen)
	}
}

func TestListenPort(t *testing.T) {
	port, err := listenPort("0.0.0.0:16678")
	if err != nil || port != 16678 {
		t.Fatalf("listenPort: %d %v", port, err)
	}
	if _, err := listenPort("127.0.0.1:0"); err == nil {
		t.Fatalf("expected error for ephemeral port")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botectl.toml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(body)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
