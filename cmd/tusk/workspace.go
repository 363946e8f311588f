package main

import (
	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace in the current repository",
	Long: `Create the .tusk/ workspace: metadata, config, and the epics, specs,
tasks, memory, and reviews directories. Fails if a workspace already
exists here.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := startDir()
		if err != nil {
			return err
		}
		ws, err := workspace.Init(dir)
		if err != nil {
			return err
		}
		return emit(map[string]any{"workspace": ws.Dir}, "initialized workspace at "+ws.Dir)
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Locate the enclosing workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		meta, err := ws.LoadMeta()
		if err != nil {
			return err
		}
		return emit(map[string]any{
			"workspace":      ws.Dir,
			"schema_version": meta.SchemaVersion,
		}, ws.Dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(detectCmd)
}
