package main

import (
	"fmt"
	"os"

	"github.com/tusk-dev/tusk/internal/actor"
	"github.com/tusk-dev/tusk/internal/configstore"
	"github.com/tusk-dev/tusk/internal/formatter"
	"github.com/tusk-dev/tusk/internal/store"
	"github.com/tusk-dev/tusk/internal/workspace"
)

// resolveActor returns the identity used for soft-claim attribution.
func resolveActor() string {
	return actor.Resolve()
}

func machineOutput() bool {
	return cfg.Output == "json"
}

// emit writes a success result: the structured envelope in JSON mode, or
// the human line otherwise.
func emit(fields map[string]any, human string) error {
	if machineOutput() {
		return formatter.WriteResult(os.Stdout, fields)
	}
	if human != "" {
		fmt.Println(human)
	}
	return nil
}

// printError reports a command failure in the selected output mode.
func printError(err error) {
	if machineOutput() {
		_ = formatter.WriteError(os.Stdout, err)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

// startDir is where workspace discovery begins.
func startDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	return os.Getwd()
}

// openWorkspace locates the enclosing workspace.
func openWorkspace() (*workspace.Workspace, error) {
	dir, err := startDir()
	if err != nil {
		return nil, err
	}
	return workspace.Open(dir)
}

// openStore opens the record store for the enclosing workspace.
func openStore() (*store.Store, error) {
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	return store.Open(ws)
}

// openConfigStore opens the workspace's persisted config tree.
func openConfigStore() (*configstore.Store, error) {
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	return configstore.Load(ws)
}
