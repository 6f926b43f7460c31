package vcr

import (
	"errors"
	"sync"
	"time"

	"github.com/procvcr/procvcr/cassette"
	"github.com/procvcr/procvcr/proc"
)

// recordingProcess wraps a real process, forwarding every operation
// transparently while tapping results for capture. The finished
// interaction is handed to the engine once, when the process is first
// observed in a terminal state.
type recordingProcess struct {
	engine *Engine
	real   *proc.RealProcess
	argv   []string // post-filter
	dir    string   // post-filter
	env    map[string]string

	mu        sync.Mutex
	events    []cassette.ControlEvent
	finalized bool
}

func (r *recordingProcess) Poll() (int, bool) {
	code, ok := r.real.Poll()
	if ok {
		r.finalize(code)
	}
	return code, ok
}

func (r *recordingProcess) ExitCode() (int, bool) { return r.Poll() }

func (r *recordingProcess) Wait(timeout time.Duration) (int, error) {
	code, err := r.real.Wait(timeout)
	if err != nil {
		var te *proc.TimeoutError
		if errors.As(err, &te) {
			r.addEvent(cassette.EventTimedOut)
		}
		return code, err
	}
	r.finalize(code)
	return code, nil
}

func (r *recordingProcess) Communicate(input []byte, timeout time.Duration) ([]byte, []byte, error) {
	stdout, stderr, err := r.real.Communicate(input, timeout)
	if err != nil {
		var te *proc.TimeoutError
		if errors.As(err, &te) {
			r.addEvent(cassette.EventTimedOut)
		}
		return stdout, stderr, err
	}
	code, _ := r.real.ExitCode()
	r.finalize(code)
	return stdout, stderr, nil
}

func (r *recordingProcess) Terminate() error {
	r.addEvent(cassette.EventTerminate)
	return r.real.Terminate()
}

func (r *recordingProcess) Kill() error {
	r.addEvent(cassette.EventKill)
	return r.real.Kill()
}

// addEvent stamps a control event with the elapsed time at the moment of
// the call, preserving the timeline for replay.
func (r *recordingProcess) addEvent(kind string) {
	elapsed := r.real.Elapsed().Seconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.events = append(r.events, cassette.ControlEvent{Elapsed: elapsed, Kind: kind})
}

func (r *recordingProcess) finalize(code int) {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}
	r.finalized = true
	events := r.events
	r.mu.Unlock()

	stdout, stderr := r.real.Output()
	r.engine.record(&cassette.Interaction{
		Args:     r.argv,
		Dir:      r.dir,
		Env:      r.env,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		Merged:   r.real.Merged(),
		ExitCode: code,
		Duration: r.real.Elapsed().Seconds(),
		Events:   events,
	})
}
