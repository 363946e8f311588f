package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tusk-dev/tusk/internal/formatter"
	"github.com/tusk-dev/tusk/internal/sched"
	"github.com/tusk-dev/tusk/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an epic with its tasks, or one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		id := args[0]
		switch {
		case st.IDs.IsEpic(id):
			epic, err := st.GetEpic(id)
			if err != nil {
				return err
			}
			tasks, err := st.ListTasks(id, "")
			if err != nil {
				return err
			}
			if machineOutput() {
				return emit(map[string]any{"epic": epic, "tasks": tasks}, "")
			}
			var b strings.Builder
			if err := formatter.EpicMarkdown(&b, &formatter.EpicView{Epic: epic, Tasks: tasks}); err != nil {
				return err
			}
			fmt.Print(renderMarkdown(b.String()))
			return nil
		case st.IDs.IsTask(id):
			task, err := st.GetTask(id)
			if err != nil {
				return err
			}
			if machineOutput() {
				return emit(map[string]any{"task": task}, "")
			}
			var b strings.Builder
			if err := formatter.TaskMarkdown(&b, task); err != nil {
				return err
			}
			fmt.Print(renderMarkdown(b.String()))
			return nil
		default:
			return fmt.Errorf("malformed id %q", id)
		}
	},
}

var epicsCmd = &cobra.Command{
	Use:   "epics",
	Short: "List all epics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		epics, err := st.ListEpics()
		if err != nil {
			return err
		}
		type epicRow struct {
			*store.Epic
			TaskCount int `json:"tasks"`
		}
		rows := make([]epicRow, 0, len(epics))
		for _, epic := range epics {
			tasks, err := st.ListTasks(epic.ID, "")
			if err != nil {
				return err
			}
			rows = append(rows, epicRow{Epic: epic, TaskCount: len(tasks)})
		}
		if machineOutput() {
			return emit(map[string]any{"epics": rows}, "")
		}
		tbl := formatter.NewTable(os.Stdout, "ID", "TITLE", "STATUS", "REVIEW", "BRANCH", "TASKS")
		tbl.SetMaxWidth(1, 40)
		for _, row := range rows {
			tbl.AddRow(row.ID, row.Title, row.Status, row.PlanReviewStatus, row.BranchName,
				fmt.Sprintf("%d", row.TaskCount))
		}
		return tbl.Render()
	},
}

var (
	tasksEpic   string
	tasksStatus string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks, optionally filtered by epic and status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		tasks, err := st.ListTasks(tasksEpic, tasksStatus)
		if err != nil {
			return err
		}
		if machineOutput() {
			return emit(map[string]any{"tasks": tasks}, "")
		}
		tbl := formatter.NewTable(os.Stdout, "ID", "TITLE", "STATUS", "PRIO", "ASSIGNEE", "DEPS")
		tbl.SetMaxWidth(1, 40)
		for _, task := range tasks {
			tbl.AddRow(task.ID, task.Title, task.Status, priorityCell(task.Priority),
				assigneeCell(task.Assignee), strings.Join(task.DependsOn, ","))
		}
		return tbl.Render()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the whole store, epics with their tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		epics, err := st.ListEpics()
		if err != nil {
			return err
		}
		type entry struct {
			Epic  *store.Epic   `json:"epic"`
			Tasks []*store.Task `json:"tasks"`
		}
		entries := make([]entry, 0, len(epics))
		for _, epic := range epics {
			tasks, err := st.ListTasks(epic.ID, "")
			if err != nil {
				return err
			}
			entries = append(entries, entry{Epic: epic, Tasks: tasks})
		}
		if machineOutput() {
			return emit(map[string]any{"epics": entries}, "")
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  [%s]\n", e.Epic.ID, e.Epic.Title, e.Epic.Status)
			for _, task := range e.Tasks {
				fmt.Printf("  %s  %s  [%s]\n", task.ID, task.Title, task.Status)
			}
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat ID",
	Short: "Print the spec document for an epic or task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		text, err := st.SpecText(args[0])
		if err != nil {
			return err
		}
		if machineOutput() {
			return emit(map[string]any{"id": args[0], "spec": text}, "")
		}
		fmt.Print(renderMarkdown(text))
		return nil
	},
}

var readyEpic string

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Partition an epic's tasks into ready, in-progress, and blocked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if readyEpic == "" {
			return fmt.Errorf("--epic is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		report, err := sched.Ready(st, readyEpic)
		if err != nil {
			return err
		}
		if machineOutput() {
			return emit(map[string]any{
				"epic":        report.Epic,
				"ready":       report.Ready,
				"in_progress": report.InProgress,
				"blocked":     report.Blocked,
			}, "")
		}
		printReadyReport(report)
		return nil
	},
}

var (
	nextEpicsFile         string
	nextRequirePlanReview bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick the next unit of work",
	Long: `Select at most one actionable unit of work: an epic needing a plan
review, an in-progress task claimed by you, or the highest-priority
ready task. Epics are considered in numeric order, or in the order
listed in --epics-file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		var epicIDs []string
		if nextEpicsFile != "" {
			epicIDs, err = readLines(nextEpicsFile)
			if err != nil {
				return err
			}
		}
		unit, err := sched.Next(st, epicIDs, nextRequirePlanReview, resolveActor())
		if err != nil {
			return err
		}
		if machineOutput() {
			fields := map[string]any{"kind": unit.Kind}
			if unit.Epic != "" {
				fields["epic"] = unit.Epic
			}
			if unit.Task != nil {
				fields["task"] = unit.Task
			}
			if len(unit.BlockedEpics) > 0 {
				fields["blocked_epics"] = unit.BlockedEpics
			}
			return emit(fields, "")
		}
		printWorkUnit(unit)
		return nil
	},
}

func printReadyReport(report *sched.ReadyReport) {
	fmt.Printf("%s\n", report.Epic)
	if len(report.Ready) > 0 {
		fmt.Println("ready:")
		for _, t := range report.Ready {
			fmt.Printf("  %s  %s\n", t.ID, t.Title)
		}
	}
	if len(report.InProgress) > 0 {
		fmt.Println("in progress:")
		for _, t := range report.InProgress {
			fmt.Printf("  %s  %s  (%s)\n", t.ID, t.Title, t.Assignee)
		}
	}
	if len(report.Blocked) > 0 {
		fmt.Println("blocked:")
		for _, t := range report.Blocked {
			fmt.Printf("  %s  %s  <- %s\n", t.ID, t.Title, strings.Join(t.BlockedBy, ", "))
		}
	}
	if len(report.Ready)+len(report.InProgress)+len(report.Blocked) == 0 {
		fmt.Println("no open tasks")
	}
}

func printWorkUnit(unit *sched.WorkUnit) {
	switch unit.Kind {
	case sched.UnitPlan:
		fmt.Printf("plan: %s needs a plan review\n", unit.Epic)
	case sched.UnitResume:
		fmt.Printf("resume: %s  %s\n", unit.Task.ID, unit.Task.Title)
	case sched.UnitReady:
		fmt.Printf("start: %s  %s\n", unit.Task.ID, unit.Task.Title)
	default:
		fmt.Println("nothing to do")
	}
	for _, b := range unit.BlockedEpics {
		fmt.Printf("  (%s blocked by %s)\n", b.Epic, strings.Join(b.BlockedBy, ", "))
	}
}

// renderMarkdown renders markdown for a terminal; non-TTY output gets the
// raw text.
func renderMarkdown(text string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return text
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// readLines returns the non-empty, non-comment lines of a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func priorityCell(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func assigneeCell(a *string) string {
	if a == nil {
		return ""
	}
	return *a
}

func init() {
	tasksCmd.Flags().StringVar(&tasksEpic, "epic", "", "Filter by epic id")
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Filter by status")
	readyCmd.Flags().StringVar(&readyEpic, "epic", "", "Epic to report on (required)")
	nextCmd.Flags().StringVar(&nextEpicsFile, "epics-file", "", "File listing epic ids in priority order")
	nextCmd.Flags().BoolVar(&nextRequirePlanReview, "require-plan-review", false, "Yield a plan unit for epics whose plan review is not ship")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(epicsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(nextCmd)
}
