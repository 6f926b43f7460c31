package proc

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRealCapturesStdout(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{Argv: []string{"echo", "Hello"}})
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", string(stdout))
	assert.Empty(t, stderr)

	code, ok := p.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, 0, code)
}

func TestStartRealCapturesStderrAndExitCode(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "echo 'This is an error' >&2; exit 42"},
	})
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, "This is an error\n", string(stderr))

	code, _ := p.ExitCode()
	assert.Equal(t, 42, code)
}

func TestStartRealMergeStderr(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{
		Argv:        []string{"/bin/sh", "-c", "echo out; echo err >&2"},
		MergeStderr: true,
	})
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(nil, 0)
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "out\n")
	assert.Contains(t, string(stdout), "err\n")
	assert.Empty(t, stderr)
	assert.True(t, p.Merged())
}

func TestStartRealLargeOutputNoDeadlock(t *testing.T) {
	// Well past a 64KiB pipe buffer; the process must finish even though
	// nobody reads until Wait.
	p, err := StartReal(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "yes x | head -c 1048576"},
	})
	require.NoError(t, err)

	code, err := p.Wait(30 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	stdout, _ := p.Output()
	assert.Len(t, stdout, 1048576)
}

func TestPollNonBlocking(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{Argv: []string{"sleep", "5"}})
	require.NoError(t, err)
	defer p.Kill()

	_, ok := p.Poll()
	assert.False(t, ok, "process should still be running")

	_, ok = p.ExitCode()
	assert.False(t, ok)
}

func TestWaitTimeoutThenTerminate(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "echo started; sleep 30"},
	})
	require.NoError(t, err)

	_, err = p.Wait(500 * time.Millisecond)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "started\n", string(te.Stdout), "timeout carries partial output")

	// The timed-out wait must not corrupt state: signal and wait again.
	require.NoError(t, p.Terminate())
	code, err := p.Wait(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, -15, code, "SIGTERM is recorded as -15")
}

func TestKillExitCode(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{Argv: []string{"sleep", "30"}})
	require.NoError(t, err)

	require.NoError(t, p.Kill())
	code, err := p.Wait(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, -9, code)
}

func TestSignalAfterExitIsNoop(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{Argv: []string{"true"}})
	require.NoError(t, err)

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	assert.NoError(t, p.Terminate())
	assert.NoError(t, p.Kill())
}

func TestCommunicateStdinPipe(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{
		Argv:      []string{"cat"},
		PipeStdin: true,
	})
	require.NoError(t, err)

	stdout, _, err := p.Communicate([]byte("over the wire\n"), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "over the wire\n", string(stdout))
}

func TestCommunicateInputWithoutPipe(t *testing.T) {
	p, err := StartReal(context.Background(), Spec{Argv: []string{"true"}})
	require.NoError(t, err)

	_, _, err = p.Communicate([]byte("data"), 10*time.Second)
	assert.ErrorContains(t, err, "stdin is not a pipe")
}

func TestSpecValidate(t *testing.T) {
	_, err := StartReal(context.Background(), Spec{})
	assert.ErrorContains(t, err, "empty argv")

	err = Spec{Argv: []string{"x"}, Stdin: nil, PipeStdin: true}.Validate()
	assert.NoError(t, err)
}

func TestStartRealUnknownBinary(t *testing.T) {
	_, err := StartReal(context.Background(), Spec{Argv: []string{"/no/such/binary"}})
	assert.Error(t, err)
}

func TestStartRealDir(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	p, err := StartReal(context.Background(), Spec{Argv: []string{"pwd"}, Dir: dir})
	require.NoError(t, err)

	stdout, _, err := p.Communicate(nil, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(string(stdout)))
}
