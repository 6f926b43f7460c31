package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBuiltinsAndRewrite(t *testing.T) {
	p, err := Compile(NewRegistry(), []Config{
		{Name: "path"},
		{Name: "interpreter"},
		{Name: "rewrite", Pattern: `build-[0-9]+`, Replace: "build-<N>"},
	})
	require.NoError(t, err)
	require.Len(t, p, 3)

	argv, _ := p.Apply([]string{"tail", "/var/log/build-8841.log"}, "")
	assert.Equal(t, []string{"tail", "/var/log/build-<N>.log"}, argv)
}

func TestCompileRejectsUnknownFilter(t *testing.T) {
	_, err := Compile(NewRegistry(), []Config{{Name: "shiny"}})
	assert.ErrorContains(t, err, `unknown filter: "shiny"`)
}

func TestCompileRejectsPatternOnBuiltin(t *testing.T) {
	_, err := Compile(NewRegistry(), []Config{{Name: "path", Pattern: "x"}})
	assert.ErrorContains(t, err, "only apply to rewrite filters")
}

func TestRewriteFilterRejectsBadPattern(t *testing.T) {
	_, err := NewRewriteFilter(`(`, "x")
	assert.Error(t, err)
}

func TestRewriteFilterRejectsNonIdempotentReplacement(t *testing.T) {
	_, err := NewRewriteFilter(`tmp[0-9]*`, "tmp0")
	assert.ErrorContains(t, err, "not idempotent")
}

func TestRewriteFilterAppliesToDir(t *testing.T) {
	f, err := NewRewriteFilter(`/builds/[a-f0-9]+`, "/builds/<ID>")
	require.NoError(t, err)
	_, dir := f.Apply(nil, "/builds/0ddba11")
	assert.Equal(t, "/builds/<ID>", dir)
}
