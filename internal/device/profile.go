package device

import (
	"fmt"
	"strings"
)

const (
	SentinelNull  = "null"
	SentinelFalse = "false"
	SentinelRect  = "-1|-1|-1|-1"
)

// Profile captures the per-platform differences of the agent protocol.
// Codec and transport are shared; only sentinels and argument shapes vary.
type Profile struct {
	Name string
	// PointSentinel is the "not found" answer of point searches.
	PointSentinel string
	// ModeFlag appends the background-operation flag to input and search
	// commands.
	ModeFlag bool
	// WindowScoped prepends a window handle to screen commands.
	WindowScoped bool
	// Elements reports xpath element support.
	Elements bool
	// Apps reports app and file management support.
	Apps bool
	// Windows reports window management and mouse support.
	Windows bool
}

var (
	Android = Profile{
		Name:          "android",
		PointSentinel: "-1.0|-1.0",
		Elements:      true,
		Apps:          true,
	}
	Windows = Profile{
		Name:          "windows",
		PointSentinel: "-1|-1",
		ModeFlag:      true,
		WindowScoped:  true,
		Elements:      true,
		Windows:       true,
	}
)

// ProfileByName resolves a profile from configuration.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Android.Name:
		return Android, nil
	case Windows.Name:
		return Windows, nil
	default:
		return Profile{}, fmt.Errorf("device: unknown profile %q", name)
	}
}
