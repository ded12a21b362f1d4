package tools

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

var ErrProcessNotStarted = errors.New("tools: process not started")

// Process is a running companion process.
type Process interface {
	Pid() int
	Stop() error
}

// ProcessStarter launches long-lived processes, such as a local device driver
// that exposes the control protocol on a loopback port.
type ProcessStarter interface {
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// ExecStarter starts processes on the local host.
type ExecStarter struct {
	// StopGrace bounds how long Stop waits after interrupting before killing.
	StopGrace time.Duration
}

func (s ExecStarter) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, grace: s.StopGrace, done: make(chan struct{})}
	go p.wait()
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = p.Stop()
			case <-p.done:
			}
		}()
	}
	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	grace time.Duration
	done  chan struct{}

	once    sync.Once
	waitErr error
}

func (p *execProcess) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Stop() error {
	if p.cmd.Process == nil {
		return ErrProcessNotStarted
	}
	var err error
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		grace := p.grace
		if grace <= 0 {
			grace = 2 * time.Second
		}
		_ = p.cmd.Process.Signal(interruptSignal())
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			err = p.cmd.Process.Kill()
			<-p.done
		}
	})
	return err
}
