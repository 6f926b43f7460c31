package cli

import (
	"fmt"
	"io"
)

// RunHelp prints CLI usage.
func RunHelp(w io.Writer) int {
	fmt.Fprint(w, `procvcr - inspect process record/replay cassettes

usage:
  procvcr --show <cassette.yaml>     print recorded interactions
  procvcr --verify <cassette.yaml>   check format and invariants
  procvcr --version                  print version
  procvcr --help                     this help
`)
	return 0
}
