package main

import (
	"fmt"
	"os"

	"github.com/procvcr/procvcr/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 1
	}

	switch os.Args[1] {
	case "--show":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "procvcr: --show requires a cassette path")
			return 1
		}
		return cli.RunShow(os.Stdout, os.Args[2])
	case "--verify":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "procvcr: --verify requires a cassette path")
			return 1
		}
		return cli.RunVerify(os.Stdout, os.Args[2])
	case "--version":
		fmt.Printf("procvcr %s\n", version)
		return 0
	case "--help":
		return cli.RunHelp(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "procvcr: unknown flag %q\n", os.Args[1])
		cli.RunHelp(os.Stderr)
		return 1
	}
}
