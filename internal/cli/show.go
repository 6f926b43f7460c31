package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/procvcr/procvcr/cassette"
)

// RunShow prints a human-readable summary of every interaction on a
// cassette.
func RunShow(w io.Writer, path string) int {
	cas, err := cassette.Load(path)
	if err != nil {
		fmt.Fprintf(w, "procvcr: %v\n", err)
		return 1
	}

	fmt.Fprintf(w, "cassette %s (format v%d", path, cas.Version)
	if cas.Session != "" {
		fmt.Fprintf(w, ", session %s", cas.Session)
	}
	fmt.Fprintln(w, ")")

	if len(cas.Interactions) == 0 {
		fmt.Fprintln(w, "no interactions")
		return 0
	}
	for i, in := range cas.Interactions {
		fmt.Fprintf(w, "%3d  %s\n", i, strings.Join(in.Args, " "))
		if in.Dir != "" {
			fmt.Fprintf(w, "     dir: %s\n", in.Dir)
		}
		fmt.Fprintf(w, "     exit: %d  stdout: %dB  stderr: %dB  duration: %.3fs\n",
			in.ExitCode, len(in.Stdout), len(in.Stderr), in.Duration)
		for _, ev := range in.Events {
			fmt.Fprintf(w, "     event: %s at %.3fs\n", ev.Kind, ev.Elapsed)
		}
	}
	return 0
}
