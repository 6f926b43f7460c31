// Package proc is the process-creation primitive that all spawning in a
// procvcr-enabled program funnels through. Start is the single seam the
// interception engine substitutes; every convenience helper is built
// strictly on top of it and inherits interception for free.
package proc

import (
	"fmt"
	"io"
)

// Spec describes one process invocation.
type Spec struct {
	// Argv is the program followed by its arguments. Must be non-empty.
	Argv []string

	// Dir is the working directory; empty means the caller's.
	Dir string

	// Env is the child environment; nil inherits the parent's.
	Env []string

	// Stdin is a fixed input stream for the child.
	Stdin io.Reader

	// PipeStdin opens a stdin pipe so Communicate can deliver input.
	// Mutually exclusive with Stdin.
	PipeStdin bool

	// MergeStderr folds stderr into the stdout capture (2>&1).
	MergeStderr bool

	// CaptureEnv lists environment variable names whose values should be
	// recorded alongside the interaction. Captured values are stored for
	// diagnostics; the default matchers never compare them.
	CaptureEnv []string
}

// Validate checks the spec before spawning.
func (s Spec) Validate() error {
	if len(s.Argv) == 0 {
		return fmt.Errorf("proc: empty argv")
	}
	if s.Stdin != nil && s.PipeStdin {
		return fmt.Errorf("proc: Stdin and PipeStdin are mutually exclusive")
	}
	return nil
}
