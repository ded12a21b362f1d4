package tools

import (
	"fmt"
	"strings"
)

// ADBReverse maps a device-side port back to this host so an on-device
// agent can dial in over USB. serial may be empty when one device is attached.
func ADBReverse(runner CommandRunner, adbPath, serial string, port int) error {
	if runner == nil {
		runner = ExecRunner{}
	}
	if strings.TrimSpace(adbPath) == "" {
		adbPath = "adb"
	}
	args := make([]string, 0, 5)
	if s := strings.TrimSpace(serial); s != "" {
		args = append(args, "-s", s)
	}
	spec := fmt.Sprintf("tcp:%d", port)
	args = append(args, "reverse", spec, spec)
	_, stderr, code, err := runner.Run(adbPath, args...)
	if err != nil {
		return fmt.Errorf("tools: adb reverse %s exit=%d stderr=%q: %w", spec, code, strings.TrimSpace(string(stderr)), err)
	}
	return nil
}
