package vcr

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a bad mode or an unusable cassette at
// activation time.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vcr: %s: %v", e.Reason, e.Err)
	}
	return "vcr: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ReentrantActivationError reports a second activation while an engine is
// already patched into the process-creation primitive.
type ReentrantActivationError struct{}

func (*ReentrantActivationError) Error() string {
	return "vcr: an engine is already active (nested activation is not allowed)"
}

// NoMatchingInteractionError reports a replay miss. It carries the live
// filtered command and the commands still unconsumed on the cassette so
// cassette drift is debuggable from the error alone.
type NoMatchingInteractionError struct {
	Command   []string
	Dir       string
	Remaining [][]string
}

func (e *NoMatchingInteractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vcr: no recorded interaction matches %q", strings.Join(e.Command, " "))
	if e.Dir != "" {
		fmt.Fprintf(&b, " (dir %s)", e.Dir)
	}
	if len(e.Remaining) == 0 {
		b.WriteString("; cassette is exhausted")
		return b.String()
	}
	b.WriteString("; unconsumed recordings:")
	for _, args := range e.Remaining {
		fmt.Fprintf(&b, "\n  - %q", strings.Join(args, " "))
	}
	return b.String()
}
