package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage task dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add TASK DEPENDS_ON",
	Short: "Record that a task depends on another task in the same epic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		task, err := st.AddDependency(args[0], args[1])
		if err != nil {
			return err
		}
		return emit(map[string]any{"task": task}, fmt.Sprintf("%s depends on %s", args[0], args[1]))
	},
}

func init() {
	depCmd.AddCommand(depAddCmd)
	rootCmd.AddCommand(depCmd)
}
