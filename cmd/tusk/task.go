package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/specdoc"
	"github.com/tusk-dev/tusk/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and manage tasks through their lifecycle",
}

var (
	taskCreateEpic       string
	taskCreateTitle      string
	taskCreateDeps       string
	taskCreateAcceptance string
	taskCreatePriority   int
)

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task under an epic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(taskCreateEpic) == "" {
			return fmt.Errorf("--epic is required")
		}
		if strings.TrimSpace(taskCreateTitle) == "" {
			return fmt.Errorf("--title is required")
		}
		acceptance := ""
		if taskCreateAcceptance != "" {
			text, err := os.ReadFile(taskCreateAcceptance)
			if err != nil {
				return err
			}
			acceptance = string(text)
		}
		var deps []string
		if taskCreateDeps != "" {
			for _, dep := range strings.Split(taskCreateDeps, ",") {
				deps = append(deps, strings.TrimSpace(dep))
			}
		}
		var priority *int
		if cmd.Flags().Changed("priority") {
			priority = &taskCreatePriority
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		task, err := st.CreateTask(taskCreateEpic, taskCreateTitle, deps, acceptance, priority)
		if err != nil {
			return err
		}
		return emit(map[string]any{"task": task}, fmt.Sprintf("created %s: %s", task.ID, task.Title))
	},
}

var taskSetDescriptionFile string

var taskSetDescriptionCmd = &cobra.Command{
	Use:   "set-description TASK",
	Short: "Replace the Description section of a task spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskSection(args[0], specdoc.SectionDescription, taskSetDescriptionFile)
	},
}

var taskSetAcceptanceFile string

var taskSetAcceptanceCmd = &cobra.Command{
	Use:   "set-acceptance TASK",
	Short: "Replace the Acceptance section of a task spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskSection(args[0], specdoc.SectionAcceptance, taskSetAcceptanceFile)
	},
}

func setTaskSection(taskID, heading, file string) error {
	text, err := readRequiredFile(file, "--file")
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	task, err := st.SetTaskSection(taskID, heading, text)
	if err != nil {
		return err
	}
	return emit(map[string]any{"task": task}, fmt.Sprintf("updated %s of %s", strings.ToLower(heading), task.ID))
}

var (
	taskStartForce bool
	taskStartNote  string
)

var taskStartCmd = &cobra.Command{
	Use:   "start TASK",
	Short: "Claim a task and move it to in_progress",
	Long: `Claim a task for the current actor. Without --force the task must be
unclaimed (or already yours), not blocked, and have all dependencies
done. --force takes over a foreign claim, recording a takeover note.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		task, err := engine.Start(args[0], taskStartForce, taskStartNote)
		if err != nil {
			return err
		}
		return emit(map[string]any{"task": task}, fmt.Sprintf("started %s (%s)", task.ID, *task.Assignee))
	},
}

var (
	taskDoneSummaryFile string
	taskDoneEvidence    string
	taskDoneForce       bool
)

var taskDoneCmd = &cobra.Command{
	Use:   "done TASK",
	Short: "Complete a task with a summary and evidence",
	Long: `Complete a task. The summary file fills the Done summary section and
the evidence JSON ({"commits": [...], "tests": [...], "prs": [...]})
fills the Evidence section. The spec is written before the record, so
done is never visible without its evidence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := readRequiredFile(taskDoneSummaryFile, "--summary-file")
		if err != nil {
			return err
		}
		var evidence store.Evidence
		if taskDoneEvidence != "" {
			raw, err := os.ReadFile(taskDoneEvidence)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &evidence); err != nil {
				return fmt.Errorf("parsing evidence JSON: %w", err)
			}
		}
		engine, err := openEngine()
		if err != nil {
			return err
		}
		task, err := engine.Done(args[0], summary, evidence, taskDoneForce)
		if err != nil {
			return err
		}
		return emit(map[string]any{"task": task}, "completed "+task.ID)
	},
}

var taskBlockReasonFile string

var taskBlockCmd = &cobra.Command{
	Use:   "block TASK",
	Short: "Mark a task blocked with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, err := readRequiredFile(taskBlockReasonFile, "--reason-file")
		if err != nil {
			return err
		}
		engine, err := openEngine()
		if err != nil {
			return err
		}
		task, err := engine.Block(args[0], reason)
		if err != nil {
			return err
		}
		return emit(map[string]any{"task": task}, "blocked "+task.ID)
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateEpic, "epic", "", "Parent epic id (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateTitle, "title", "", "Task title (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateDeps, "deps", "", "Comma-separated dependency task ids")
	taskCreateCmd.Flags().StringVar(&taskCreateAcceptance, "acceptance-file", "", "File containing acceptance criteria")
	taskCreateCmd.Flags().IntVar(&taskCreatePriority, "priority", 0, "Priority (lower runs first)")
	taskSetDescriptionCmd.Flags().StringVar(&taskSetDescriptionFile, "file", "", "File containing the description (required)")
	taskSetAcceptanceCmd.Flags().StringVar(&taskSetAcceptanceFile, "file", "", "File containing the acceptance criteria (required)")
	taskStartCmd.Flags().BoolVar(&taskStartForce, "force", false, "Bypass claim, block, and dependency guards")
	taskStartCmd.Flags().StringVar(&taskStartNote, "note", "", "Claim note")
	taskDoneCmd.Flags().StringVar(&taskDoneSummaryFile, "summary-file", "", "File containing the done summary (required)")
	taskDoneCmd.Flags().StringVar(&taskDoneEvidence, "evidence-json", "", "File containing evidence JSON")
	taskDoneCmd.Flags().BoolVar(&taskDoneForce, "force", false, "Bypass claim and status guards")
	taskBlockCmd.Flags().StringVar(&taskBlockReasonFile, "reason-file", "", "File containing the block reason (required)")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskSetDescriptionCmd)
	taskCmd.AddCommand(taskSetAcceptanceCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskBlockCmd)
	rootCmd.AddCommand(taskCmd)
}
