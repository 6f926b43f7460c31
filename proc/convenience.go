package proc

import (
	"context"
	"strings"
)

// The helpers below are implemented strictly in terms of Start. That
// layering is an architectural invariant: it is what makes them replay
// correctly under an active interception engine without any special
// casing in the engine itself.

// Output runs command through the shell with stderr merged into stdout
// and returns the combined output with any trailing newline removed.
func Output(ctx context.Context, command string) (string, error) {
	_, out, err := StatusOutput(ctx, command)
	return out, err
}

// StatusOutput runs command through the shell and returns its exit code
// alongside the combined output, trailing newline removed.
func StatusOutput(ctx context.Context, command string) (int, string, error) {
	p, err := Start(ctx, Spec{
		Argv:        []string{"/bin/sh", "-c", command},
		MergeStderr: true,
	})
	if err != nil {
		return -1, "", err
	}
	stdout, _, err := p.Communicate(nil, 0)
	if err != nil {
		return -1, "", err
	}
	code, _ := p.ExitCode()
	return code, strings.TrimSuffix(string(stdout), "\n"), nil
}

// Run spawns spec, waits for it, and returns the exit code with the full
// captured stdout and stderr.
func Run(ctx context.Context, spec Spec) (int, []byte, []byte, error) {
	p, err := Start(ctx, spec)
	if err != nil {
		return -1, nil, nil, err
	}
	stdout, stderr, err := p.Communicate(nil, 0)
	if err != nil {
		return -1, stdout, stderr, err
	}
	code, _ := p.ExitCode()
	return code, stdout, stderr, nil
}
