// Command boltpage serves a live-updating HTML preview of a Markdown, JSON,
// YAML, or plain-text file. The rendered page reloads itself whenever the
// file changes on disk.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "boltpage: %v\n", err)
		os.Exit(1)
	}
}
