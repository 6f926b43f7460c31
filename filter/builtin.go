package filter

import (
	"os"
	"path/filepath"
	"strings"
)

// Placeholders substituted for machine-specific directories.
const (
	PlaceholderTmp  = "<TMP>"
	PlaceholderHome = "<HOME>"
	PlaceholderCwd  = "<CWD>"
)

// PathFilter rewrites the process's working directory, temp directory and
// home directory to stable placeholders wherever they appear in argv or
// the working directory. Replacement order is cwd, tmp, home: the most
// specific path wins when one nests inside another.
type PathFilter struct {
	cwd  string
	tmp  string
	home string
}

// NewPathFilter captures the current cwd, temp and home directories.
func NewPathFilter() *PathFilter {
	f := &PathFilter{tmp: filepath.Clean(os.TempDir())}
	if cwd, err := os.Getwd(); err == nil {
		f.cwd = filepath.Clean(cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		f.home = filepath.Clean(home)
	}
	return f
}

func (f *PathFilter) Name() string { return "path" }

func (f *PathFilter) Apply(argv []string, dir string) ([]string, string) {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = f.rewrite(arg)
	}
	return out, f.rewrite(dir)
}

func (f *PathFilter) rewrite(s string) string {
	if f.cwd != "" && f.cwd != "/" {
		s = strings.ReplaceAll(s, f.cwd, PlaceholderCwd)
	}
	if f.tmp != "" && f.tmp != "/" {
		s = strings.ReplaceAll(s, f.tmp, PlaceholderTmp)
	}
	if f.home != "" && f.home != "/" {
		s = strings.ReplaceAll(s, f.home, PlaceholderHome)
	}
	return s
}

// knownInterpreters are executables whose absolute path varies per machine
// but whose identity is carried by the base name alone.
var knownInterpreters = map[string]bool{
	"sh":      true,
	"bash":    true,
	"zsh":     true,
	"dash":    true,
	"env":     true,
	"python":  true,
	"python3": true,
	"perl":    true,
	"ruby":    true,
}

// InterpreterFilter collapses absolute paths to well-known interpreters
// down to their base name, so a cassette recorded against /usr/bin/python3
// matches a replay against /opt/homebrew/bin/python3.
type InterpreterFilter struct{}

// NewInterpreterFilter returns the interpreter-normalizing filter.
func NewInterpreterFilter() *InterpreterFilter { return &InterpreterFilter{} }

func (*InterpreterFilter) Name() string { return "interpreter" }

func (*InterpreterFilter) Apply(argv []string, dir string) ([]string, string) {
	out := make([]string, len(argv))
	for i, arg := range argv {
		if filepath.IsAbs(arg) && knownInterpreters[filepath.Base(arg)] {
			out[i] = filepath.Base(arg)
		} else {
			out[i] = arg
		}
	}
	return out, dir
}
