package cassette

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MalformedError reports a cassette that could not be parsed or that
// violates format invariants. It is raised at load, not at first use.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed cassette %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Load reads and validates a cassette. A missing file surfaces the
// underlying os error (check with errors.Is(err, fs.ErrNotExist)); any
// parse or schema failure is a *MalformedError.
func Load(path string) (*Cassette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Cassette
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}
	return &c, nil
}

// Save writes the cassette atomically: marshal to a temp file in the
// target directory, then rename over the destination. A reader never
// observes a half-written cassette.
func Save(path string, c *Cassette) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cassette dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cassette: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cassette-*.yaml")
	if err != nil {
		return fmt.Errorf("write cassette: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cassette: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cassette: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cassette: %w", err)
	}
	return nil
}
