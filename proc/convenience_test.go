package proc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	out, err := Output(context.Background(), "echo 'Hello from getoutput!'")
	require.NoError(t, err)
	assert.Equal(t, "Hello from getoutput!", out, "trailing newline is stripped")
}

func TestOutputMergesStderr(t *testing.T) {
	out, err := Output(context.Background(), "echo visible >&2")
	require.NoError(t, err)
	assert.Equal(t, "visible", out)
}

func TestStatusOutput(t *testing.T) {
	code, out, err := StatusOutput(context.Background(), "echo 'This is an error' >&2; exit 42")
	require.NoError(t, err)
	assert.Equal(t, 42, code)
	assert.Equal(t, "This is an error", out)
}

func TestStatusOutputMultiLine(t *testing.T) {
	code, out, err := StatusOutput(context.Background(), "echo 'Line 1'; echo 'Line 2'; echo 'Line 3'")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Line 1\nLine 2\nLine 3", out, "only the final newline is stripped")
}

func TestRun(t *testing.T) {
	code, stdout, stderr, err := Run(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "echo out; echo err >&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))
}
