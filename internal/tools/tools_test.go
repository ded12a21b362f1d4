package tools

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/testutil/testlog"
)

type recordingRunner struct {
	name string
	args []string
	err  error
}

func (r *recordingRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.name = name
	r.args = args
	if r.err != nil {
		return nil, []byte("error: no devices/emulators found\n"), 1, r.err
	}
	return nil, nil, 0, nil
}

func TestADBReverseBuildsArgs(t *testing.T) {
	testlog.Start(t)
	r := &recordingRunner{}
	if err := ADBReverse(r, "", "emulator-5554", 18080); err != nil {
		t.Fatalf("adb reverse: %v", err)
	}
	if r.name != "adb" {
		t.Fatalf("unexpected binary: %q", r.name)
	}
	want := []string{"-s", "emulator-5554", "reverse", "tcp:18080", "tcp:18080"}
	if !reflect.DeepEqual(r.args, want) {
		t.Fatalf("unexpected args: %v", r.args)
	}
}

func TestADBReverseSurfacesFailure(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("exit status 1")
	r := &recordingRunner{err: boom}
	err := ADBReverse(r, "/opt/adb", "", 18080)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if len(r.args) != 3 {
		t.Fatalf("serial must be omitted when empty: %v", r.args)
	}
}

func TestExecRunnerExitCodes(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	_, _, code, err := ExecRunner{}.Run("sh", "-c", "exit 3")
	if err == nil || code != 3 {
		t.Fatalf("expected exit 3, got code=%d err=%v", code, err)
	}
	_, _, code, err = ExecRunner{}.Run("definitely-not-a-binary-botectl")
	if err == nil || code != 127 {
		t.Fatalf("expected 127 for missing binary, got code=%d err=%v", code, err)
	}
}

func TestExecStarterStopsProcess(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("posix sleep required")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	p, err := ExecStarter{StopGrace: 500 * time.Millisecond}.Start(context.Background(), "sleep", "30")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.Pid() <= 0 {
		t.Fatalf("expected pid")
	}
	done := make(chan error, 1)
	go func() { done <- p.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("stop did not return")
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}
