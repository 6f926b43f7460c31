package vcr

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procvcr/procvcr/cassette"
	"github.com/procvcr/procvcr/proc"
)

type replayState int

const (
	replayRunning replayState = iota
	replayExited
	replayTerminated
	replayKilled
)

// replayProcess emulates the observable lifecycle of a process handle
// purely from one recorded interaction. No OS process backs it.
type replayProcess struct {
	in  *cassette.Interaction
	log *zap.Logger

	mu             sync.Mutex
	state          replayState
	timeoutPending bool
	timeoutAt      float64 // recorded elapsed seconds of the timed-out event
}

func newReplayProcess(in *cassette.Interaction, log *zap.Logger) *replayProcess {
	p := &replayProcess{in: in, log: log}
	if ev, ok := in.TimedOut(); ok {
		p.timeoutPending = true
		p.timeoutAt = ev.Elapsed
	}
	return p
}

// Poll reflects the recorded final state immediately, except while a
// recorded timeout is still pending emulation, when the process reports
// itself running so a short Wait can reproduce the interrupted-output
// behavior.
func (p *replayProcess) Poll() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != replayRunning {
		return p.in.ExitCode, true
	}
	if p.timeoutPending {
		return 0, false
	}
	p.settle()
	return p.in.ExitCode, true
}

// ExitCode mirrors the terminal code once set and does not itself drive
// the state machine forward.
func (p *replayProcess) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == replayRunning {
		return 0, false
	}
	return p.in.ExitCode, true
}

func (p *replayProcess) Wait(timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.gateTimeout(timeout); err != nil {
		return 0, err
	}
	p.settle()
	return p.in.ExitCode, nil
}

func (p *replayProcess) Communicate(_ []byte, timeout time.Duration) ([]byte, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.gateTimeout(timeout); err != nil {
		return nil, nil, err
	}
	p.settle()
	return []byte(p.in.Stdout), []byte(p.in.Stderr), nil
}

// gateTimeout reproduces a recorded timeout: when the interaction carries
// a timed-out event and the caller's timeout is at or below its recorded
// elapsed time, the call fails with the partial output captured at
// recording time. The state is left running so a later unbounded wait
// still reaches the recorded terminal state. A positive caller timeout
// that outlasts the recorded one falls back to the recorded exit code
// with a warning: the cassette cannot distinguish a true timeout from a
// process killed for another reason. An unbounded wait is the normal
// recovery path and is not warned about.
func (p *replayProcess) gateTimeout(timeout time.Duration) error {
	if p.state != replayRunning || !p.timeoutPending {
		return nil
	}
	if timeout > 0 && timeout.Seconds() <= p.timeoutAt {
		return &proc.TimeoutError{
			Timeout: timeout,
			Stdout:  []byte(p.in.Stdout),
			Stderr:  []byte(p.in.Stderr),
		}
	}
	if timeout > 0 {
		p.log.Warn("vcr replay: caller timeout exceeds recorded timed-out event; returning recorded exit code",
			zap.Strings("command", p.in.Args),
			zap.Float64("recorded_elapsed", p.timeoutAt),
			zap.Int("exit", p.in.ExitCode))
	}
	p.timeoutPending = false
	return nil
}

// settle moves the proxy to the terminal state implied by the recorded
// control events. Callers hold p.mu.
func (p *replayProcess) settle() {
	if p.state != replayRunning {
		return
	}
	p.timeoutPending = false
	switch {
	case p.in.HasEvent(cassette.EventKill):
		p.state = replayKilled
	case p.in.HasEvent(cassette.EventTerminate):
		p.state = replayTerminated
	default:
		p.state = replayExited
	}
}

// Terminate is a deliberate no-op that never fails: there is no process
// to signal. When the interaction recorded a terminate event the proxy
// goes terminal immediately, so a caller that terminates and then
// communicates observes the recorded "terminated" exit code.
func (p *replayProcess) Terminate() error {
	p.consumeSignal(cassette.EventTerminate, replayTerminated)
	return nil
}

// Kill mirrors Terminate for SIGKILL.
func (p *replayProcess) Kill() error {
	p.consumeSignal(cassette.EventKill, replayKilled)
	return nil
}

func (p *replayProcess) consumeSignal(kind string, target replayState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != replayRunning {
		return
	}
	if p.in.HasEvent(kind) {
		p.timeoutPending = false
		p.state = target
	}
	// Without a matching recorded event the recorded final exit code is
	// returned regardless of which control method was called. Known
	// fidelity limitation.
}
