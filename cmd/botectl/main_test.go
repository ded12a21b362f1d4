package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/script"
	"github.com/danmuck/botectl/internal/testutil/agenttest"
	"github.com/danmuck/botectl/internal/testutil/testlog"
)

type recordingRunner struct {
	name string
	args []string
}

func (r *recordingRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.name = name
	r.args = append([]string(nil), args...)
	return nil, nil, 0, nil
}

func dialConfig(addr string) appConfig {
	cfg := defaultAppConfig()
	cfg.Mode = modeDial
	cfg.Address = addr
	return cfg
}

func TestRunExecPrintsResponse(t *testing.T) {
	testlog.Start(t)
	agent := agenttest.Listen(t)
	agent.QueueText("getWindowSize", "1080|2340")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	if err := runExec(ctx, dialConfig(agent.Addr()), &out, "getWindowSize", nil, ""); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if strings.TrimSpace(out.String()) != "1080|2340" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunExecPassesArgs(t *testing.T) {
	testlog.Start(t)
	agent := agenttest.Listen(t)
	agent.QueueText("click", "true")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	if err := runExec(ctx, dialConfig(agent.Addr()), &out, "click", []string{"100", "200"}, ""); err != nil {
		t.Fatalf("exec: %v", err)
	}
	calls := agent.CallsTo("click")
	if len(calls) != 1 || strings.Join(calls[0].StringArgs(), ",") != "100,200" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestRunScriptWritesReport(t *testing.T) {
	testlog.Start(t)
	agent := agenttest.Listen(t)
	agent.QueueText("findImage", "-1.0|-1.0", "12|34")
	agent.QueueText("click", "true")

	sc, err := script.Parse([]byte(`
name: tap
interval: 10ms
steps:
  - command: findImage
    args: ["/sdcard/ok.png"]
    until_not: "-1.0|-1.0"
    save: ok
  - command: click
    args: ["${ok.0}", "${ok.1}"]
    expect: "true"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	if err := runScript(ctx, dialConfig(agent.Addr()), &out, sc); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "findImage") || !strings.Contains(out.String(), "succeeded") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
	if got := agent.CallsTo("click"); len(got) != 1 || got[0].StringArgs()[0] != "12" {
		t.Fatalf("unexpected click calls: %+v", got)
	}
}

func TestOpenSessionAcceptWithADBReverse(t *testing.T) {
	testlog.Start(t)
	addr := freeAddr(t)
	cfg := defaultAppConfig()
	cfg.Listen = addr
	cfg.ADB = adbConfig{Path: "/opt/adb", Serial: "emu-1", Reverse: true}

	agent := agenttest.New()
	t.Cleanup(agent.Close)
	go agent.DialIn(t, addr)

	runner := &recordingRunner{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := openSession(ctx, cfg, runner)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer s.Close()

	_, port, _ := net.SplitHostPort(addr)
	want := "-s emu-1 reverse tcp:" + port + " tcp:" + port
	if runner.name != "/opt/adb" || strings.Join(runner.args, " ") != want {
		t.Fatalf("unexpected adb call: %s %v", runner.name, runner.args)
	}
	if !s.Connected() {
		t.Fatalf("expected connected session")
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "botectl dev") {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestRunServeExposesSession(t *testing.T) {
	testlog.Start(t)
	agent := agenttest.Listen(t)
	cfg := dialConfig(agent.Addr())
	cfg.AdminListen = freeAddr(t)
	cfg.AdminToken = "t0k"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, "") }()

	url := "http://" + cfg.AdminListen + "/sessions"
	var body string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer t0k")
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			body = string(b)
			if strings.Contains(body, `"connected":true`) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(body, `"connected":true`) {
		t.Fatalf("session never reported connected: %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
