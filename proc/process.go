package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Process is the observable contract of a spawned process handle. In
// record mode it is backed by a real OS process; in replay mode by a
// recorded interaction. Poll, Terminate, Kill and ExitCode never block;
// Wait and Communicate are the only blocking operations.
type Process interface {
	// Poll reports the exit code without blocking. ok is false while the
	// process is still running.
	Poll() (code int, ok bool)

	// Wait blocks until the process reaches a terminal state or timeout
	// elapses. timeout <= 0 waits indefinitely. On timeout it returns a
	// *TimeoutError carrying the output drained so far; the process state
	// is left intact and a later Wait can still reach the terminal state.
	Wait(timeout time.Duration) (code int, err error)

	// Communicate optionally delivers input on the stdin pipe, then waits
	// like Wait and returns the full captured stdout and stderr. On
	// timeout it returns partial output inside a *TimeoutError.
	Communicate(input []byte, timeout time.Duration) (stdout, stderr []byte, err error)

	// Terminate requests SIGTERM. Never blocks.
	Terminate() error

	// Kill requests SIGKILL. Never blocks.
	Kill() error

	// ExitCode mirrors the terminal exit code once set. ok is false while
	// the process is running.
	ExitCode() (code int, ok bool)
}

// TimeoutError reports that Wait or Communicate gave up before the
// process reached a terminal state. Stdout and Stderr hold whatever
// output had been captured when the deadline expired.
type TimeoutError struct {
	Timeout time.Duration
	Stdout  []byte
	Stderr  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process did not finish within %s", e.Timeout)
}

// Interceptor substitutes the process-creation primitive. At most one
// interceptor may be installed at a time; this is the one piece of
// process-wide mutable state in the system.
type Interceptor interface {
	Start(ctx context.Context, spec Spec) (Process, error)
}

// ErrInterceptorActive is returned by SetInterceptor while another
// interceptor is installed.
var ErrInterceptorActive = errors.New("proc: an interceptor is already installed")

var (
	interceptMu sync.Mutex
	interceptor Interceptor
)

// SetInterceptor installs i as the substitution for Start. Installing
// while another interceptor is active fails with ErrInterceptorActive;
// nesting is never silently tolerated.
func SetInterceptor(i Interceptor) error {
	interceptMu.Lock()
	defer interceptMu.Unlock()
	if interceptor != nil {
		return ErrInterceptorActive
	}
	interceptor = i
	return nil
}

// ClearInterceptor removes i. It fails if i is not the installed
// interceptor, which catches mismatched activate/deactivate pairs.
func ClearInterceptor(i Interceptor) error {
	interceptMu.Lock()
	defer interceptMu.Unlock()
	if interceptor != i {
		return errors.New("proc: interceptor is not installed")
	}
	interceptor = nil
	return nil
}

func currentInterceptor() Interceptor {
	interceptMu.Lock()
	defer interceptMu.Unlock()
	return interceptor
}

// Start spawns a process for spec. While an interceptor is installed,
// every call is routed through it, including calls made by the
// convenience helpers, which are implemented on top of Start.
func Start(ctx context.Context, spec Spec) (Process, error) {
	if i := currentInterceptor(); i != nil {
		return i.Start(ctx, spec)
	}
	return StartReal(ctx, spec)
}
