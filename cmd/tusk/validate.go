package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tusk-dev/tusk/internal/validate"
)

var (
	validateEpic string
	validateAll  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check store integrity",
	Long: `Validate the workspace: paired spec documents, dependency resolution,
required spec headings, dependency cycles, and closure consistency.
Exits non-zero when any check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateEpic == "" && !validateAll {
			return fmt.Errorf("either --epic or --all is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}

		var reports []*validate.Report
		if validateAll {
			reports = validate.All(st)
		} else {
			reports = []*validate.Report{validate.Epic(st, validateEpic)}
		}

		if machineOutput() {
			if !validate.OK(reports) {
				return fmt.Errorf("validation failed: %s", strings.Join(allErrors(reports), "; "))
			}
			return emit(map[string]any{"reports": reports}, "")
		}
		failed := false
		for _, report := range reports {
			if report.OK() {
				fmt.Printf("%s: ok\n", report.Scope)
				continue
			}
			failed = true
			fmt.Printf("%s:\n", report.Scope)
			for _, msg := range report.Errors {
				fmt.Printf("  %s\n", msg)
			}
		}
		if failed {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func allErrors(reports []*validate.Report) []string {
	var msgs []string
	for _, report := range reports {
		msgs = append(msgs, report.Errors...)
	}
	return msgs
}

func init() {
	validateCmd.Flags().StringVar(&validateEpic, "epic", "", "Validate one epic")
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "Validate the whole store")
	rootCmd.AddCommand(validateCmd)
}
