package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/config"
	"github.com/tusk-dev/tusk/internal/logging"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
	workDir    string

	// Tool configuration, resolved in the persistent pre-run.
	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tusk",
	Short: "Durable task state for epics and tasks, tracked in your repo",
	Long: `tusk keeps epic and task state as plain files under .tusk/ in your
repository: JSON records for machine state, Markdown specs for humans.
State merges with your branches, diffs in your reviews, and needs no
server.

Core commands:
  init         Create a workspace in the current repository
  epic         Create and manage epics
  task         Create and manage tasks through their lifecycle
  ready        Show what can be worked on now
  next         Pick the next unit of work
  validate     Check store integrity
  review       Run an external review agent and record its verdict`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		loaded, err := config.Load(&config.Config{Verbose: verbose})
		if err == nil {
			cfg = loaded
		}
		if jsonOutput {
			cfg.Output = "json"
		}
		logging.Init(cfg.Verbose)
	},
}

// Execute runs the CLI and reports the first error, already printed in the
// selected output mode.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Structured JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Directory to locate the workspace from (default: cwd)")
}
