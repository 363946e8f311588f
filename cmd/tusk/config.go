package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write workspace configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		value := cs.Get(args[0], nil)
		if value == nil {
			return fmt.Errorf("config key %q is not set", args[0])
		}
		return emit(map[string]any{"key": args[0], "value": value}, fmt.Sprintf("%v", value))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a dotted-path config key, creating intermediate nodes as needed.
"true", "false", and all-digit values are stored typed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := cs.Set(args[0], args[1]); err != nil {
			return err
		}
		return emit(map[string]any{"key": args[0], "value": cs.Get(args[0], nil)},
			fmt.Sprintf("%s = %s", args[0], args[1]))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
