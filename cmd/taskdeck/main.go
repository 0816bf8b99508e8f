// Package main is the single-binary entrypoint for TaskDeck, the
// command-line companion and dashboard sidecar for a remote
// task-execution backend.
package main

import "github.com/taskdeck/taskdeck/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
