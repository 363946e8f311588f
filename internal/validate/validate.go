// Package validate performs structural validation of the workspace: root
// invariants, paired-artifact existence, dependency well-formedness, cycle
// detection, and closure consistency. Validation is read-only.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tusk-dev/tusk/internal/specdoc"
	"github.com/tusk-dev/tusk/internal/storage"
	"github.com/tusk-dev/tusk/internal/store"
	"github.com/tusk-dev/tusk/internal/workspace"
)

// Report collects human-readable diagnostics for one validation scope.
type Report struct {
	Scope  string   `json:"scope"`
	Errors []string `json:"errors"`
}

// OK reports whether the scope passed.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Root checks workspace root invariants: metadata present and supported,
// required subdirectories in place.
func Root(ws *workspace.Workspace) *Report {
	report := &Report{Scope: "workspace", Errors: []string{}}
	if _, err := ws.LoadMeta(); err != nil {
		report.errorf("metadata: %v", err)
	}
	for _, dir := range []string{ws.EpicsDir(), ws.SpecsDir(), ws.TasksDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			report.errorf("required directory missing: %s", ws.RelPath(dir))
		}
	}
	return report
}

// Epic validates one epic and every task under it.
func Epic(st *store.Store, epicID string) *Report {
	report := &Report{Scope: epicID, Errors: []string{}}

	epic, err := st.GetEpic(epicID)
	if err != nil {
		report.errorf("%v", err)
		return report
	}

	if !storage.Exists(st.WS.EpicSpecPath(epicID)) {
		report.errorf("epic %s: plan document missing (%s)", epicID, epic.SpecPath)
	}

	for _, dep := range epic.DependsOnEpics {
		if !st.IDs.IsEpic(dep) {
			report.errorf("epic %s: malformed epic dependency %q", epicID, dep)
			continue
		}
		if dep == epicID {
			report.errorf("epic %s: depends on itself", epicID)
			continue
		}
		if _, err := st.GetEpic(dep); err != nil {
			report.errorf("epic %s: epic dependency %s does not exist", epicID, dep)
		}
	}

	tasks, err := st.ListTasks(epicID, "")
	if err != nil {
		report.errorf("listing tasks: %v", err)
		return report
	}
	byID := make(map[string]*store.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	for _, task := range tasks {
		checkTask(st, report, task, byID)
	}

	if cycle := findCycle(tasks); cycle != nil {
		report.errorf("dependency cycle: %s", strings.Join(cycle, " -> "))
	}

	if epic.Status == store.EpicDone {
		for _, task := range tasks {
			if task.Status != store.StatusDone {
				report.errorf("epic %s is done but task %s is %s", epicID, task.ID, task.Status)
			}
		}
	}
	return report
}

// All validates the workspace root and every epic, and flags task records
// whose epic is missing. Reports are ordered root first, then by epic.
func All(st *store.Store) []*Report {
	reports := []*Report{Root(st.WS)}

	epics, err := st.ListEpics()
	if err != nil {
		reports[0].errorf("listing epics: %v", err)
		return reports
	}
	known := map[string]bool{}
	for _, epic := range epics {
		known[epic.ID] = true
		reports = append(reports, Epic(st, epic.ID))
	}

	orphans := &Report{Scope: "orphans", Errors: []string{}}
	tasks, err := st.ListTasks("", "")
	if err != nil {
		orphans.errorf("listing tasks: %v", err)
	}
	for _, task := range tasks {
		if !known[task.Epic] {
			orphans.errorf("task %s: epic %s does not exist", task.ID, task.Epic)
		}
	}
	orphanSpecs(st, orphans)
	if !orphans.OK() {
		reports = append(reports, orphans)
	}
	return reports
}

// orphanSpecs flags spec documents with no paired JSON record, the
// reverse direction of the missing-spec checks in Epic.
func orphanSpecs(st *store.Store, report *Report) {
	scan := func(dir string, jsonPath func(string) string, kind string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return // missing dirs are reported by Root
		}
		for _, entry := range entries {
			id, ok := strings.CutSuffix(entry.Name(), ".md")
			if !ok {
				continue
			}
			if !storage.Exists(jsonPath(id)) {
				report.errorf("%s spec %s has no paired record", kind,
					st.WS.RelPath(filepath.Join(dir, entry.Name())))
			}
		}
	}
	scan(st.WS.TasksDir(), st.WS.TaskJSONPath, "task")
	scan(st.WS.SpecsDir(), st.WS.EpicJSONPath, "epic")
}

// OK reports whether every report passed.
func OK(reports []*Report) bool {
	for _, r := range reports {
		if !r.OK() {
			return false
		}
	}
	return true
}

func checkTask(st *store.Store, report *Report, task *store.Task, byID map[string]*store.Task) {
	if !store.ValidTaskStatus(task.Status) {
		report.errorf("task %s: invalid status %q", task.ID, task.Status)
	}

	specPath := st.WS.TaskSpecPath(task.ID)
	data, err := storage.ReadFile(specPath)
	switch {
	case errors.Is(err, storage.ErrMissing):
		report.errorf("task %s: spec document missing (%s)", task.ID, task.SpecPath)
	case err != nil:
		report.errorf("task %s: spec unreadable: %v", task.ID, err)
	default:
		for _, problem := range specdoc.CheckRequired(string(data)) {
			report.errorf("task %s: spec %v", task.ID, problem)
		}
	}

	for _, dep := range task.DependsOn {
		depEpic, err := st.IDs.EpicOf(dep)
		if err != nil {
			report.errorf("task %s: malformed dependency %q", task.ID, dep)
			continue
		}
		if depEpic != task.Epic {
			report.errorf("task %s: dependency %s crosses epics", task.ID, dep)
			continue
		}
		if _, ok := byID[dep]; !ok {
			report.errorf("task %s: dependency %s does not exist", task.ID, dep)
		}
	}
}

// findCycle runs a depth-first traversal over the epic's dependency graph
// maintaining a recursion set, and returns the first cycle found as the
// chain of ids that closes it.
func findCycle(tasks []*store.Task) []string {
	deps := make(map[string][]string, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		deps[task.ID] = task.DependsOn
		ids = append(ids, task.ID)
	}
	sort.Strings(ids)

	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	state := make(map[string]int, len(tasks))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = inStack
		stack = append(stack, id)
		for _, dep := range deps[id] {
			switch state[dep] {
			case inStack:
				// Close the chain: slice the stack from the first
				// occurrence of dep and append dep again.
				for i, v := range stack {
					if v == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			case unvisited:
				if _, ok := deps[dep]; !ok {
					continue // missing dep, reported elsewhere
				}
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = finished
		return nil
	}

	for _, id := range ids {
		if state[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
