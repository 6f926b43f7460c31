// Package cassette defines the on-disk format for recorded process
// interactions and the store that reads and writes it.
package cassette

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is the cassette format this build reads and writes.
// Loading a cassette with a newer version fails loudly; unknown fields
// within a known version are ignored.
const FormatVersion = 1

// Control event kinds, recorded in the order they happened.
const (
	EventTerminate = "terminate" // SIGTERM was requested
	EventKill      = "kill"      // SIGKILL was requested
	EventTimedOut  = "timed-out" // a wait/communicate deadline expired
)

// ControlEvent marks a process-control action at an offset from process
// start. Elapsed is in seconds.
type ControlEvent struct {
	Elapsed float64 `yaml:"elapsed"`
	Kind    string  `yaml:"kind"`
}

// Interaction is one recorded invocation and its full observable outcome.
// Args and Dir are stored post-filter so cassettes stay portable across
// machines. A negative ExitCode means the process was terminated by signal
// N, recorded as -N.
type Interaction struct {
	Args     []string          `yaml:"args"`
	Dir      string            `yaml:"dir,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Stdout   string            `yaml:"stdout,omitempty"`
	Stderr   string            `yaml:"stderr,omitempty"`
	Merged   bool              `yaml:"merged,omitempty"` // stderr folded into stdout
	ExitCode int               `yaml:"exit"`
	Duration float64           `yaml:"duration,omitempty"` // advisory wall-clock seconds
	Events   []ControlEvent    `yaml:"events,omitempty"`
}

// TimedOut returns the first recorded timed-out event, if any.
func (in *Interaction) TimedOut() (ControlEvent, bool) {
	for _, ev := range in.Events {
		if ev.Kind == EventTimedOut {
			return ev, true
		}
	}
	return ControlEvent{}, false
}

// HasEvent reports whether an event of the given kind was recorded.
func (in *Interaction) HasEvent(kind string) bool {
	for _, ev := range in.Events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks structural invariants. Malformed interactions are
// rejected at load time, never lazily at first use.
func (in *Interaction) Validate() error {
	if len(in.Args) == 0 {
		return fmt.Errorf("interaction has no command")
	}
	if in.Merged && in.Stderr != "" {
		return fmt.Errorf("interaction %v: merged output but stderr is non-empty", in.Args)
	}
	// Exit-code-versus-event consistency is deliberately not enforced: a
	// process can reach its own exit between a signal request and its
	// delivery, so a kill or timed-out event alongside a clean exit code
	// is a legal recording.
	prev := -1.0
	for i, ev := range in.Events {
		switch ev.Kind {
		case EventTerminate, EventKill, EventTimedOut:
		default:
			return fmt.Errorf("interaction %v: unknown event kind %q", in.Args, ev.Kind)
		}
		if ev.Elapsed < 0 {
			return fmt.Errorf("interaction %v: event %d has negative elapsed time", in.Args, i)
		}
		if ev.Elapsed < prev {
			return fmt.Errorf("interaction %v: event %d out of order", in.Args, i)
		}
		prev = ev.Elapsed
	}
	return nil
}

// Cassette is an ordered sequence of interactions. Order is significant:
// replay consumes duplicates of the same command first-in-first-out.
type Cassette struct {
	Version      int            `yaml:"version"`
	Session      string         `yaml:"session,omitempty"`
	RecordedAt   time.Time      `yaml:"recorded_at,omitempty"`
	Interactions []*Interaction `yaml:"interactions"`
}

// New returns an empty cassette for a fresh recording session.
func New() *Cassette {
	return &Cassette{
		Version:    FormatVersion,
		Session:    uuid.NewString(),
		RecordedAt: time.Now().UTC(),
	}
}

// Append adds an interaction, preserving recording order.
func (c *Cassette) Append(in *Interaction) {
	c.Interactions = append(c.Interactions, in)
}

// Validate checks the version tag and every interaction.
func (c *Cassette) Validate() error {
	if c.Version < 1 || c.Version > FormatVersion {
		return fmt.Errorf("unsupported cassette format version %d (supported: 1..%d)", c.Version, FormatVersion)
	}
	for i, in := range c.Interactions {
		if in == nil {
			return fmt.Errorf("interaction %d is empty", i)
		}
		if err := in.Validate(); err != nil {
			return fmt.Errorf("interaction %d: %w", i, err)
		}
	}
	return nil
}
