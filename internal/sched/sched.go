// Package sched computes ready/blocked partitions and selects the next
// unit of work across an ordering of epics. The scheduler only reads the
// store; it never mutates.
package sched

import (
	"sort"

	"github.com/tusk-dev/tusk/internal/store"
)

// priorityRank sorts nil priorities last.
const nilPriorityRank = 999

// TaskRef is the scheduler's view of one task.
type TaskRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority *int   `json:"priority"`
	Assignee string `json:"assignee,omitempty"`
}

// BlockedTask is a task that cannot run yet, with the dependency ids that
// block it (missing deps or deps whose status is not done).
type BlockedTask struct {
	TaskRef
	BlockedBy []string `json:"blocked_by"`
}

// ReadyReport partitions one epic's tasks.
type ReadyReport struct {
	Epic       string        `json:"epic"`
	Ready      []TaskRef     `json:"ready"`
	InProgress []TaskRef     `json:"in_progress"`
	Blocked    []BlockedTask `json:"blocked"`
}

// Work unit kinds returned by Next.
const (
	UnitPlan   = "plan"
	UnitResume = "resume"
	UnitReady  = "ready"
	UnitNone   = "none"
)

// EpicBlockage reports an epic skipped because of open epic-level deps.
type EpicBlockage struct {
	Epic      string   `json:"epic"`
	BlockedBy []string `json:"blocked_by"`
}

// WorkUnit is the result of Next: at most one actionable unit of work.
type WorkUnit struct {
	Kind         string         `json:"kind"`
	Epic         string         `json:"epic,omitempty"`
	Task         *TaskRef       `json:"task,omitempty"`
	BlockedEpics []EpicBlockage `json:"blocked_epics,omitempty"`
}

// Ready partitions the epic's tasks into ready, in-progress, and blocked
// sets, each sorted by (priority rank, task number, title).
func Ready(st *store.Store, epicID string) (*ReadyReport, error) {
	if _, err := st.GetEpic(epicID); err != nil {
		return nil, err
	}
	tasks, err := st.ListTasks(epicID, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	report := &ReadyReport{Epic: epicID, Ready: []TaskRef{}, InProgress: []TaskRef{}, Blocked: []BlockedTask{}}
	for _, task := range tasks {
		switch task.Status {
		case store.StatusInProgress:
			report.InProgress = append(report.InProgress, ref(task))
		case store.StatusBlocked:
			report.Blocked = append(report.Blocked, BlockedTask{TaskRef: ref(task), BlockedBy: blockers(task, byID)})
		case store.StatusTodo:
			if bl := blockers(task, byID); len(bl) > 0 {
				report.Blocked = append(report.Blocked, BlockedTask{TaskRef: ref(task), BlockedBy: bl})
			} else {
				report.Ready = append(report.Ready, ref(task))
			}
		}
	}

	sortRefs(st, report.Ready)
	sortRefs(st, report.InProgress)
	sort.SliceStable(report.Blocked, func(i, j int) bool {
		return refLess(st, report.Blocked[i].TaskRef, report.Blocked[j].TaskRef)
	})
	return report, nil
}

// Next selects at most one unit of work across epicIDs in order, skipping
// closed epics. Epics with open epic-level dependencies are recorded as
// blocked and skipped. When requirePlanReview is set, an epic whose plan
// review status is not ship yields a plan unit. Otherwise an in-progress
// task claimed by actorID yields a resume unit, and a non-empty ready set
// yields its first entry.
func Next(st *store.Store, epicIDs []string, requirePlanReview bool, actorID string) (*WorkUnit, error) {
	if epicIDs == nil {
		epics, err := st.ListEpics()
		if err != nil {
			return nil, err
		}
		for _, epic := range epics {
			epicIDs = append(epicIDs, epic.ID)
		}
	}

	var blockages []EpicBlockage
	for _, epicID := range epicIDs {
		epic, err := st.GetEpic(epicID)
		if err != nil {
			return nil, err
		}
		if epic.Status == store.EpicDone {
			continue
		}

		if open := openEpicDeps(st, epic); len(open) > 0 {
			blockages = append(blockages, EpicBlockage{Epic: epicID, BlockedBy: open})
			continue
		}

		if requirePlanReview && epic.PlanReviewStatus != store.ReviewShip {
			return &WorkUnit{Kind: UnitPlan, Epic: epicID, BlockedEpics: blockages}, nil
		}

		report, err := Ready(st, epicID)
		if err != nil {
			return nil, err
		}
		for i := range report.InProgress {
			if report.InProgress[i].Assignee == actorID && actorID != "" {
				return &WorkUnit{Kind: UnitResume, Epic: epicID, Task: &report.InProgress[i], BlockedEpics: blockages}, nil
			}
		}
		if len(report.Ready) > 0 {
			return &WorkUnit{Kind: UnitReady, Epic: epicID, Task: &report.Ready[0], BlockedEpics: blockages}, nil
		}
	}

	return &WorkUnit{Kind: UnitNone, BlockedEpics: blockages}, nil
}

// openEpicDeps returns the epic-level dependencies of epic that are
// missing or not yet done.
func openEpicDeps(st *store.Store, epic *store.Epic) []string {
	var open []string
	for _, dep := range epic.DependsOnEpics {
		other, err := st.GetEpic(dep)
		if err != nil || other.Status != store.EpicDone {
			open = append(open, dep)
		}
	}
	return open
}

func ref(task *store.Task) TaskRef {
	assignee := ""
	if task.Assignee != nil {
		assignee = *task.Assignee
	}
	return TaskRef{ID: task.ID, Title: task.Title, Status: task.Status, Priority: task.Priority, Assignee: assignee}
}

// blockers returns the dependency ids preventing task from running:
// missing deps, and deps whose status is not done.
func blockers(task *store.Task, byID map[string]*store.Task) []string {
	var out []string
	for _, dep := range task.DependsOn {
		other, ok := byID[dep]
		if !ok || other.Status != store.StatusDone {
			out = append(out, dep)
		}
	}
	return out
}

func sortRefs(st *store.Store, refs []TaskRef) {
	sort.SliceStable(refs, func(i, j int) bool { return refLess(st, refs[i], refs[j]) })
}

// refLess orders by (priority rank, task number, title); nil priority
// ranks as the sentinel 999.
func refLess(st *store.Store, a, b TaskRef) bool {
	ra, rb := rank(a.Priority), rank(b.Priority)
	if ra != rb {
		return ra < rb
	}
	_, am, _ := st.IDs.ParseTask(a.ID)
	_, bm, _ := st.IDs.ParseTask(b.ID)
	if am != bm {
		return am < bm
	}
	return a.Title < b.Title
}

func rank(p *int) int {
	if p == nil {
		return nilPriorityRank
	}
	return *p
}
