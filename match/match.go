// Package match selects which recorded interaction satisfies a live
// invocation. Matching is deterministic: among duplicate commands the
// earliest unconsumed recording wins, so replay is order-sensitive the
// same way the original run was.
package match

import (
	"slices"

	"github.com/procvcr/procvcr/cassette"
)

// Matcher finds the recorded interaction for a live (already filtered)
// invocation. It returns the index into remaining of the earliest match,
// or -1 when nothing matches. A miss is reported, never guessed.
type Matcher interface {
	Name() string
	FindMatch(argv []string, dir string, remaining []*cassette.Interaction) int
}

// Exact is the default policy: the filtered argv and working directory
// must both be equal, FIFO among duplicates.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) FindMatch(argv []string, dir string, remaining []*cassette.Interaction) int {
	for i, in := range remaining {
		if slices.Equal(argv, in.Args) && dir == in.Dir {
			return i
		}
	}
	return -1
}

// ArgvOnly ignores working-directory differences; only the filtered argv
// must match. Select it explicitly when tests run the same commands from
// varying directories.
type ArgvOnly struct{}

func (ArgvOnly) Name() string { return "argv" }

func (ArgvOnly) FindMatch(argv []string, _ string, remaining []*cassette.Interaction) int {
	for i, in := range remaining {
		if slices.Equal(argv, in.Args) {
			return i
		}
	}
	return -1
}
