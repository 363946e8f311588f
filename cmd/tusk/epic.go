package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/lifecycle"
)

var epicCmd = &cobra.Command{
	Use:   "epic",
	Short: "Create and manage epics",
}

var (
	epicCreateTitle  string
	epicCreateBranch string
)

var epicCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an epic with the next available id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(epicCreateTitle) == "" {
			return fmt.Errorf("--title is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		epic, err := st.CreateEpic(epicCreateTitle, epicCreateBranch)
		if err != nil {
			return err
		}
		return emit(map[string]any{"epic": epic}, fmt.Sprintf("created %s: %s", epic.ID, epic.Title))
	},
}

var epicSetPlanFile string

var epicSetPlanCmd = &cobra.Command{
	Use:   "set-plan EPIC",
	Short: "Overwrite an epic's plan document from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readRequiredFile(epicSetPlanFile, "--file")
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		epic, err := st.SetEpicPlan(args[0], text)
		if err != nil {
			return err
		}
		return emit(map[string]any{"epic": epic}, "updated plan for "+epic.ID)
	},
}

var epicSetPlanReviewCmd = &cobra.Command{
	Use:   "set-plan-review-status EPIC {ship|needs_work|unknown}",
	Short: "Record the plan review verdict for an epic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		epic, err := st.SetPlanReviewStatus(args[0], args[1])
		if err != nil {
			return err
		}
		return emit(map[string]any{"epic": epic},
			fmt.Sprintf("%s plan review: %s", epic.ID, epic.PlanReviewStatus))
	},
}

var epicSetBranchCmd = &cobra.Command{
	Use:   "set-branch EPIC BRANCH",
	Short: "Set the branch name associated with an epic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		epic, err := st.SetBranch(args[0], args[1])
		if err != nil {
			return err
		}
		return emit(map[string]any{"epic": epic}, fmt.Sprintf("%s branch: %s", epic.ID, epic.BranchName))
	},
}

var epicCloseCmd = &cobra.Command{
	Use:   "close EPIC",
	Short: "Close an epic once every task under it is done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		epic, already, err := engine.CloseEpic(args[0])
		if err != nil {
			return err
		}
		human := "closed " + epic.ID
		if already {
			human = epic.ID + " already closed"
		}
		return emit(map[string]any{"epic": epic, "already_closed": already}, human)
	},
}

// openEngine builds a lifecycle engine for the resolved actor.
func openEngine() (*lifecycle.Engine, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	return &lifecycle.Engine{Store: st, Actor: resolveActor()}, nil
}

// readRequiredFile reads the file named by a required flag.
func readRequiredFile(path, flag string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s is required", flag)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	epicCreateCmd.Flags().StringVar(&epicCreateTitle, "title", "", "Epic title (required)")
	epicCreateCmd.Flags().StringVar(&epicCreateBranch, "branch", "", "Branch name (default: the epic id)")
	epicSetPlanCmd.Flags().StringVar(&epicSetPlanFile, "file", "", "File containing the plan markdown (required)")

	epicCmd.AddCommand(epicCreateCmd)
	epicCmd.AddCommand(epicSetPlanCmd)
	epicCmd.AddCommand(epicSetPlanReviewCmd)
	epicCmd.AddCommand(epicSetBranchCmd)
	epicCmd.AddCommand(epicCloseCmd)
	rootCmd.AddCommand(epicCmd)
}
