package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/review"
	"github.com/tusk-dev/tusk/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run an external review agent and record its verdict",
}

var reviewPlanContext string

var reviewPlanCmd = &cobra.Command{
	Use:   "plan EPIC",
	Short: "Review an epic's plan document",
	Long: `Send the epic's plan to the review agent and record the receipt. A
SHIP verdict sets the epic's plan review status to ship; any other
verdict sets needs_work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		epicID := args[0]
		if _, err := st.GetEpic(epicID); err != nil {
			return err
		}
		plan, err := st.SpecText(epicID)
		if err != nil {
			return err
		}

		receipt, err := newRunner(st).Run(cmd.Context(), review.Request{
			Type:    review.TypePlan,
			Subject: epicID,
			Prompt:  planPrompt(epicID, plan, reviewPlanContext),
		})
		if err != nil {
			return err
		}

		status := store.ReviewNeedsWork
		if receipt.Verdict == review.VerdictShip {
			status = store.ReviewShip
		}
		if _, err := st.SetPlanReviewStatus(epicID, status); err != nil {
			return err
		}
		return emitReceipt(receipt)
	},
}

var (
	reviewImplBase    string
	reviewImplContext string
	reviewImplDiff    string
)

var reviewImplCmd = &cobra.Command{
	Use:   "impl TASK",
	Short: "Review a task's implementation against its spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		taskID := args[0]
		if _, err := st.GetTask(taskID); err != nil {
			return err
		}
		spec, err := st.SpecText(taskID)
		if err != nil {
			return err
		}
		diff := ""
		if reviewImplDiff != "" {
			diff, err = readRequiredFile(reviewImplDiff, "--diff-file")
			if err != nil {
				return err
			}
		}

		receipt, err := newRunner(st).Run(cmd.Context(), review.Request{
			Type:    review.TypeImpl,
			Subject: taskID,
			BaseRev: reviewImplBase,
			Prompt:  implPrompt(taskID, spec, diff, reviewImplContext),
		})
		if err != nil {
			return err
		}
		return emitReceipt(receipt)
	},
}

func newRunner(st *store.Store) *review.Runner {
	return review.NewRunner(st.WS, cfg.CommandArgv(), cfg.Review.Model,
		time.Duration(cfg.Review.TimeoutSeconds)*time.Second)
}

func emitReceipt(receipt *review.Receipt) error {
	return emit(map[string]any{"receipt": receipt},
		fmt.Sprintf("%s: %s", receipt.Subject, receipt.Verdict))
}

func planPrompt(epicID, plan, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review the following plan for epic %s.\n\n", epicID)
	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", context)
	}
	b.WriteString(plan)
	b.WriteString("\n\nEnd your review with <verdict>SHIP</verdict>, <verdict>NEEDS_WORK</verdict>, or <verdict>MAJOR_RETHINK</verdict>.\n")
	return b.String()
}

func implPrompt(taskID, spec, diff, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review the implementation of task %s against its spec.\n\n", taskID)
	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", context)
	}
	b.WriteString(spec)
	if diff != "" {
		b.WriteString("\n\nDiff summary:\n\n")
		b.WriteString(diff)
	}
	b.WriteString("\n\nEnd your review with <verdict>SHIP</verdict>, <verdict>NEEDS_WORK</verdict>, or <verdict>MAJOR_RETHINK</verdict>.\n")
	return b.String()
}

func init() {
	reviewPlanCmd.Flags().StringVar(&reviewPlanContext, "context", "", "Extra context for the reviewer")
	reviewImplCmd.Flags().StringVar(&reviewImplBase, "base", "", "Base revision the implementation diverged from")
	reviewImplCmd.Flags().StringVar(&reviewImplContext, "context", "", "Extra context for the reviewer")
	reviewImplCmd.Flags().StringVar(&reviewImplDiff, "diff-file", "", "File containing a diff summary")

	reviewCmd.AddCommand(reviewPlanCmd)
	reviewCmd.AddCommand(reviewImplCmd)
	rootCmd.AddCommand(reviewCmd)
}
