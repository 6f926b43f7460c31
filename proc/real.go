package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// lockedBuffer is an output sink safe for the writer goroutines exec.Cmd
// runs while the process is live. Snapshots may be taken at any time,
// which is how partial output on timeout is produced.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// RealProcess wraps an OS process. Stdout and stderr are drained
// concurrently with the process running, so a child that produces more
// output than a pipe buffer holds cannot deadlock against a later Wait.
type RealProcess struct {
	cmd     *exec.Cmd
	started time.Time
	stdout  *lockedBuffer
	stderr  *lockedBuffer
	merged  bool
	done    chan struct{}

	mu          sync.Mutex
	stdin       io.WriteCloser // non-nil until closed, when PipeStdin was set
	exit        int
	duration    time.Duration
	waitErr     error // infrastructure failure from Wait, not an exit status
	terminalSet bool
}

// StartReal spawns the process described by spec, bypassing any installed
// interceptor. The interception engine uses it as the "real primitive" in
// record mode.
func StartReal(ctx context.Context, spec Spec) (*RealProcess, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	p := &RealProcess{
		cmd:    cmd,
		stdout: &lockedBuffer{},
		stderr: &lockedBuffer{},
		merged: spec.MergeStderr,
		done:   make(chan struct{}),
	}

	cmd.Stdout = p.stdout
	if spec.MergeStderr {
		cmd.Stderr = p.stdout
	} else {
		cmd.Stderr = p.stderr
	}

	switch {
	case spec.Stdin != nil:
		cmd.Stdin = spec.Stdin
	case spec.PipeStdin:
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("proc: stdin pipe: %w", err)
		}
		p.stdin = pipe
	}

	p.started = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("proc: start %s: %w", spec.Argv[0], err)
	}

	go p.reap()
	return p, nil
}

// reap waits for the process and the internal output copiers exactly
// once, then publishes the terminal state.
func (p *RealProcess) reap() {
	err := p.cmd.Wait()
	code, infraErr := exitStatus(err)

	p.mu.Lock()
	p.exit = code
	p.waitErr = infraErr
	p.duration = time.Since(p.started)
	p.terminalSet = true
	p.mu.Unlock()
	close(p.done)
}

// exitStatus maps a Wait error to the POSIX convention: signal N becomes
// -N. Errors that are not exit statuses (I/O failures during the copy)
// are reported separately.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -int(ws.Signal()), nil
		}
		return ee.ExitCode(), nil
	}
	return -1, err
}

func (p *RealProcess) Poll() (int, bool) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.exit, true
	default:
		return 0, false
	}
}

func (p *RealProcess) ExitCode() (int, bool) { return p.Poll() }

func (p *RealProcess) Wait(timeout time.Duration) (int, error) {
	if timeout <= 0 {
		<-p.done
		return p.terminal()
	}
	select {
	case <-p.done:
		return p.terminal()
	case <-time.After(timeout):
		return 0, &TimeoutError{
			Timeout: timeout,
			Stdout:  p.stdout.Snapshot(),
			Stderr:  p.stderr.Snapshot(),
		}
	}
}

func (p *RealProcess) terminal() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exit, p.waitErr
}

func (p *RealProcess) Communicate(input []byte, timeout time.Duration) ([]byte, []byte, error) {
	if err := p.sendInput(input); err != nil {
		return nil, nil, err
	}
	if _, err := p.Wait(timeout); err != nil {
		return nil, nil, err
	}
	return p.stdout.Snapshot(), p.stderr.Snapshot(), nil
}

// sendInput writes input to the stdin pipe and closes it so the child
// sees EOF. With no pipe open, input is an error and nil is a no-op.
func (p *RealProcess) sendInput(input []byte) error {
	p.mu.Lock()
	pipe := p.stdin
	p.stdin = nil
	p.mu.Unlock()

	if pipe == nil {
		if input != nil {
			return fmt.Errorf("proc: stdin is not a pipe")
		}
		return nil
	}
	defer pipe.Close()
	if input != nil {
		if _, err := pipe.Write(input); err != nil {
			return fmt.Errorf("proc: write stdin: %w", err)
		}
	}
	return nil
}

func (p *RealProcess) Terminate() error { return p.signal(syscall.SIGTERM) }

func (p *RealProcess) Kill() error { return p.signal(syscall.SIGKILL) }

// signal delivers sig unless the process is already captured, in which
// case the request is a no-op rather than an error.
func (p *RealProcess) signal(sig syscall.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(sig); err != nil {
		// The process can exit between the check and the signal.
		if errors.Is(err, syscall.ESRCH) || err.Error() == "os: process already finished" {
			return nil
		}
		return fmt.Errorf("proc: signal %s: %w", sig, err)
	}
	return nil
}

// Elapsed returns wall-clock time since the process started, frozen at
// the terminal duration once it exits. Control events are stamped with
// this value.
func (p *RealProcess) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminalSet {
		return p.duration
	}
	return time.Since(p.started)
}

// Output snapshots the captured stdout and stderr so far.
func (p *RealProcess) Output() (stdout, stderr []byte) {
	return p.stdout.Snapshot(), p.stderr.Snapshot()
}

// Merged reports whether stderr was folded into the stdout capture.
func (p *RealProcess) Merged() bool { return p.merged }
