// Package vcr records the outcomes of external process invocations to a
// cassette file and deterministically replays them later without spawning
// anything. While an engine is active, all process creation through
// proc.Start is routed through it.
package vcr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/procvcr/procvcr/cassette"
	"github.com/procvcr/procvcr/filter"
	"github.com/procvcr/procvcr/match"
	"github.com/procvcr/procvcr/proc"
)

// Mode selects how an engine answers process-creation calls.
type Mode int

const (
	// ModeDisabled passes every call through to the real primitive.
	ModeDisabled Mode = iota
	// ModeRecord (a.k.a. reset) executes for real and overwrites the
	// cassette with the captured outcomes at deactivation.
	ModeRecord
	// ModeReplay satisfies every call from the cassette and never spawns.
	// Activation fails if the cassette is missing or malformed.
	ModeReplay
	// ModeFallback replays when a recording matches and records the
	// outcome of a real execution otherwise.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disable"
	case ModeRecord:
		return "record"
	case ModeReplay:
		return "replay"
	case ModeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name. "reset" is accepted as an alias for
// record.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "disable", "disabled", "":
		return ModeDisabled, nil
	case "record", "reset":
		return ModeRecord, nil
	case "replay":
		return ModeReplay, nil
	case "fallback":
		return ModeFallback, nil
	default:
		return 0, fmt.Errorf("unknown mode: %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithFilters appends normalizers applied to every invocation's argv and
// working directory before matching or persistence.
func WithFilters(fs ...filter.Filter) Option {
	return func(e *Engine) { e.filters = append(e.filters, fs...) }
}

// WithMatcher replaces the default exact matcher.
func WithMatcher(m match.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithLogger sets the diagnostics logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine owns a mode and a cassette, and substitutes itself for the
// process-creation primitive between Activate and Deactivate.
type Engine struct {
	path    string
	mode    Mode
	filters filter.Pipeline
	matcher match.Matcher
	log     *zap.Logger

	mu       sync.Mutex
	active   bool
	cas      *cassette.Cassette
	consumed []bool
	recorded int
}

// New creates an engine for the cassette at path. Nothing is patched
// until Activate.
func New(path string, mode Mode, opts ...Option) *Engine {
	e := &Engine{
		path:    path,
		mode:    mode,
		matcher: match.Exact{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the engine's mode.
func (e *Engine) Mode() Mode { return e.mode }

// CassettePath returns the cassette file location.
func (e *Engine) CassettePath() string { return e.path }

// Activate installs the engine as the process-creation substitute. In
// replay mode the cassette is loaded up front and activation fails with a
// *ConfigurationError when it is missing, or a *cassette.MalformedError
// when it does not parse. A second activation anywhere in the process
// fails with *ReentrantActivationError.
func (e *Engine) Activate() error {
	switch e.mode {
	case ModeDisabled:
		return nil
	case ModeRecord, ModeReplay, ModeFallback:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("invalid mode %v", e.mode)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return &ReentrantActivationError{}
	}

	switch e.mode {
	case ModeRecord:
		e.cas = cassette.New()
	case ModeReplay:
		cas, err := cassette.Load(e.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &ConfigurationError{Reason: fmt.Sprintf("replay mode requires an existing cassette at %s", e.path), Err: err}
			}
			return err
		}
		e.cas = cas
	case ModeFallback:
		cas, err := cassette.Load(e.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			cas = cassette.New()
		case err != nil:
			return err
		}
		e.cas = cas
	}
	e.consumed = make([]bool, len(e.cas.Interactions))
	e.recorded = 0

	if err := proc.SetInterceptor(e); err != nil {
		e.cas = nil
		e.consumed = nil
		return &ReentrantActivationError{}
	}
	e.active = true
	e.log.Debug("vcr activated",
		zap.Stringer("mode", e.mode),
		zap.String("cassette", e.path),
		zap.Int("interactions", len(e.cas.Interactions)))
	return nil
}

// Deactivate restores the real primitive. In record mode (or fallback
// mode with new recordings) the accumulated cassette is flushed to disk.
// Deactivating an inactive engine is a no-op.
func (e *Engine) Deactivate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return nil
	}
	if err := proc.ClearInterceptor(e); err != nil {
		return err
	}
	e.active = false

	flush := e.mode == ModeRecord || (e.mode == ModeFallback && e.recorded > 0)
	if flush {
		if err := cassette.Save(e.path, e.cas); err != nil {
			return fmt.Errorf("vcr: flush cassette: %w", err)
		}
		e.log.Debug("vcr cassette flushed",
			zap.String("cassette", e.path),
			zap.Int("interactions", len(e.cas.Interactions)))
	}
	e.cas = nil
	e.consumed = nil
	return nil
}

// Use runs fn inside an activation scope. The engine is deactivated (and
// a recorded cassette flushed) even when fn fails.
func (e *Engine) Use(fn func() error) error {
	if err := e.Activate(); err != nil {
		return err
	}
	fnErr := fn()
	if err := e.Deactivate(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// Start implements proc.Interceptor. It applies the filter pipeline and
// dispatches on mode.
func (e *Engine) Start(ctx context.Context, spec proc.Spec) (proc.Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	argv, dir := e.filters.Apply(spec.Argv, spec.Dir)

	switch e.mode {
	case ModeRecord:
		return e.startRecording(ctx, spec, argv, dir)
	case ModeReplay:
		return e.startReplay(argv, dir)
	case ModeFallback:
		p, err := e.startReplay(argv, dir)
		if err == nil {
			return p, nil
		}
		var miss *NoMatchingInteractionError
		if !errors.As(err, &miss) {
			return nil, err
		}
		e.log.Info("vcr fallback: no recording, executing for real",
			zap.Strings("command", argv))
		return e.startRecording(ctx, spec, argv, dir)
	default:
		return proc.StartReal(ctx, spec)
	}
}

func (e *Engine) startRecording(ctx context.Context, spec proc.Spec, argv []string, dir string) (proc.Process, error) {
	real, err := proc.StartReal(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &recordingProcess{
		engine: e,
		real:   real,
		argv:   argv,
		dir:    dir,
		env:    captureEnv(spec.CaptureEnv),
	}, nil
}

func (e *Engine) startReplay(argv []string, dir string) (proc.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		remaining []*cassette.Interaction
		indexes   []int
	)
	for i, in := range e.cas.Interactions {
		if !e.consumed[i] {
			remaining = append(remaining, in)
			indexes = append(indexes, i)
		}
	}

	idx := e.matcher.FindMatch(argv, dir, remaining)
	if idx < 0 {
		miss := &NoMatchingInteractionError{Command: argv, Dir: dir}
		for _, in := range remaining {
			miss.Remaining = append(miss.Remaining, in.Args)
		}
		return nil, miss
	}
	e.consumed[indexes[idx]] = true
	e.log.Debug("vcr replay match",
		zap.Strings("command", argv),
		zap.Int("interaction", indexes[idx]))
	return newReplayProcess(remaining[idx], e.log), nil
}

// record appends a completed interaction to the in-memory cassette. The
// recording proxy calls it exactly once per process, after the terminal
// state is reached so output and exit code are complete.
func (e *Engine) record(in *cassette.Interaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cas == nil {
		e.log.Warn("vcr: interaction finished after deactivation, dropping it",
			zap.Strings("command", in.Args))
		return
	}
	e.cas.Append(in)
	// Keep the consumption bitmap aligned: in fallback mode a command
	// recorded earlier in the session replays on its next invocation.
	e.consumed = append(e.consumed, false)
	e.recorded++
	e.log.Debug("vcr recorded interaction",
		zap.Strings("command", in.Args),
		zap.Int("exit", in.ExitCode))
}

func captureEnv(names []string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	env := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}
	return env
}
