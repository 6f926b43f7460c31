// Package vcrtest is the thin test-runner adapter: it selects a mode,
// derives a per-test cassette path, wires the configured filters and
// scopes activation to the test's lifetime. All interception logic lives
// in the vcr package.
package vcrtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/procvcr/procvcr/filter"
	"github.com/procvcr/procvcr/internal/config"
	"github.com/procvcr/procvcr/match"
	"github.com/procvcr/procvcr/vcr"
)

// ModeEnv selects the interception mode for a test run, overriding the
// config file: record (or reset), replay, fallback, disable.
const ModeEnv = "PROCVCR_MODE"

type options struct {
	mode    *vcr.Mode
	dir     string
	filters []filter.Filter
	matcher match.Matcher
}

// Option adjusts the adapter for one test.
type Option func(*options)

// WithMode forces a mode, ignoring PROCVCR_MODE and the config file.
func WithMode(m vcr.Mode) Option {
	return func(o *options) { o.mode = &m }
}

// WithCassetteDir overrides the cassette directory.
func WithCassetteDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithFilters appends filters after the configured ones.
func WithFilters(fs ...filter.Filter) Option {
	return func(o *options) { o.filters = append(o.filters, fs...) }
}

// WithMatcher selects a non-default matching policy.
func WithMatcher(m match.Matcher) Option {
	return func(o *options) { o.matcher = m }
}

// New activates an engine for the duration of the test and returns it.
// The cassette lives at <cassette_dir>/<TestName>.yaml. Deactivation is
// registered as a cleanup, so record-mode cassettes are flushed when the
// test finishes; calling Deactivate earlier inside the test is also fine.
func New(t *testing.T, opts ...Option) *vcr.Engine {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("vcrtest: %v", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := resolveMode(o, cfg)
	if err != nil {
		t.Fatalf("vcrtest: %v", err)
	}

	pipeline, err := cfg.CompileFilters()
	if err != nil {
		t.Fatalf("vcrtest: %v", err)
	}
	pipeline = append(pipeline, o.filters...)

	dir := o.dir
	if dir == "" {
		dir = cfg.CassetteDir
	}
	path := filepath.Join(dir, cassetteName(t.Name()))

	engineOpts := []vcr.Option{
		vcr.WithFilters(pipeline...),
		vcr.WithLogger(zaptest.NewLogger(t)),
	}
	if o.matcher != nil {
		engineOpts = append(engineOpts, vcr.WithMatcher(o.matcher))
	}

	eng := vcr.New(path, mode, engineOpts...)
	if err := eng.Activate(); err != nil {
		t.Fatalf("vcrtest: activate: %v", err)
	}
	t.Cleanup(func() {
		if err := eng.Deactivate(); err != nil {
			t.Errorf("vcrtest: deactivate: %v", err)
		}
	})
	return eng
}

func resolveMode(o options, cfg *config.Config) (vcr.Mode, error) {
	if o.mode != nil {
		return *o.mode, nil
	}
	if s, ok := os.LookupEnv(ModeEnv); ok {
		return vcr.ParseMode(s)
	}
	return vcr.ParseMode(cfg.Mode)
}

// cassetteName flattens a test name (including subtest separators) into
// a single file name.
func cassetteName(name string) string {
	r := strings.NewReplacer("/", "_", " ", "_", "'", "", "\"", "")
	return r.Replace(name) + ".yaml"
}
