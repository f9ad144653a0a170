// Command voxdrill is the adaptive voice interview practice engine.
//
// It serves the practice HTTP API, runs practice sessions in the terminal,
// lists the question bank and learner history, and exposes the engine as an
// MCP server over stdio.
package main

import "os"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
