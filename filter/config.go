package filter

import (
	"fmt"
	"regexp"
)

// Config selects one filter in a config file. Builtin filters are chosen
// by name alone; "rewrite" additionally takes a regexp and replacement.
type Config struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern,omitempty"`
	Replace string `yaml:"replace,omitempty"`
}

// RewriteFilter applies a regexp substitution to every argv element and
// to the working directory. The replacement must not itself match the
// pattern, otherwise the filter is not idempotent.
type RewriteFilter struct {
	re      *regexp.Regexp
	replace string
}

// NewRewriteFilter compiles a rewrite filter from a pattern and
// replacement.
func NewRewriteFilter(pattern, replace string) (*RewriteFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rewrite filter: %w", err)
	}
	if re.MatchString(replace) {
		return nil, fmt.Errorf("rewrite filter: replacement %q matches pattern %q (not idempotent)", replace, pattern)
	}
	return &RewriteFilter{re: re, replace: replace}, nil
}

func (f *RewriteFilter) Name() string { return "rewrite" }

func (f *RewriteFilter) Apply(argv []string, dir string) ([]string, string) {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = f.re.ReplaceAllString(arg, f.replace)
	}
	return out, f.re.ReplaceAllString(dir, f.replace)
}

// Compile turns config entries into a pipeline, resolving builtin names
// through the registry.
func Compile(reg *Registry, cfgs []Config) (Pipeline, error) {
	var p Pipeline
	for i, cfg := range cfgs {
		if cfg.Name == "rewrite" {
			f, err := NewRewriteFilter(cfg.Pattern, cfg.Replace)
			if err != nil {
				return nil, fmt.Errorf("filter %d: %w", i, err)
			}
			p = append(p, f)
			continue
		}
		if cfg.Pattern != "" || cfg.Replace != "" {
			return nil, fmt.Errorf("filter %d (%s): pattern/replace only apply to rewrite filters", i, cfg.Name)
		}
		f, err := reg.New(cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		p = append(p, f)
	}
	return p, nil
}
