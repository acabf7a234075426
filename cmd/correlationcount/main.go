package main

import (
	"os"

	"correlationcount/internal/cli"
)

// main runs the correlation-count rule toolkit.
// Params: CLI arguments (subcommand plus optional --config-file or --config-dir).
// Returns: process exit code (2 for a bad config source, 1 for other failures).
func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
