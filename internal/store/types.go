// Package store implements CRUD for epics and tasks: paired JSON state
// records and Markdown spec documents under the workspace directory. The
// JSON is the machine-readable source of truth; the Markdown carries
// narrative for humans and assistants.
package store

import (
	"encoding/json"
	"time"
)

// Epic statuses.
const (
	EpicOpen = "open"
	EpicDone = "done"
)

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"
)

// Plan review statuses.
const (
	ReviewUnknown   = "unknown"
	ReviewShip      = "ship"
	ReviewNeedsWork = "needs_work"
)

// TaskStatuses enumerates the valid task statuses.
var TaskStatuses = []string{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

// PlanReviewStatuses enumerates the valid plan review statuses.
var PlanReviewStatuses = []string{ReviewUnknown, ReviewShip, ReviewNeedsWork}

// ValidTaskStatus reports whether s is a member of the task status set.
func ValidTaskStatus(s string) bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ValidPlanReviewStatus reports whether s is a member of the plan review set.
func ValidPlanReviewStatus(s string) bool {
	for _, v := range PlanReviewStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Epic is a container for related tasks, with a narrative plan document.
type Epic struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Status           string   `json:"status"`
	PlanReviewStatus string   `json:"plan_review_status"`
	PlanReviewedAt   *string  `json:"plan_reviewed_at"`
	BranchName       string   `json:"branch_name,omitempty"`
	DependsOnEpics   []string `json:"depends_on_epics"`
	SpecPath         string   `json:"spec_path"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// Task is a unit of work under exactly one epic.
type Task struct {
	ID        string   `json:"id"`
	Epic      string   `json:"epic"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Priority  *int     `json:"priority"`
	DependsOn []string `json:"depends_on"`
	Assignee  *string  `json:"assignee"`
	ClaimedAt *string  `json:"claimed_at"`
	ClaimNote string   `json:"claim_note"`
	SpecPath  string   `json:"spec_path"`
	Evidence  Evidence `json:"evidence"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Evidence is the structured completion record populated at done.
type Evidence struct {
	Commits StringList `json:"commits"`
	Tests   StringList `json:"tests"`
	PRs     StringList `json:"prs"`
}

// StringList unmarshals either a JSON array of strings or a bare string,
// coercing scalars to single-element lists. Missing fields stay empty.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = StringList{one}
	return nil
}

// MarshalJSON renders nil lists as [] so the persisted evidence object
// always carries all three arrays.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// NowUTC returns the current time as an ISO-8601 UTC timestamp with a
// trailing Z. All persisted timestamps use this format.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// normalizeEpic injects defaults missing from records written by older
// builds so invariants hold uniformly on read.
func normalizeEpic(e *Epic) {
	if e.Status == "" {
		e.Status = EpicOpen
	}
	if e.PlanReviewStatus == "" {
		e.PlanReviewStatus = ReviewUnknown
	}
	if e.DependsOnEpics == nil {
		e.DependsOnEpics = []string{}
	}
}

// normalizeTask injects defaults missing from older task records.
func normalizeTask(t *Task) {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.DependsOn == nil {
		t.DependsOn = []string{}
	}
	if t.Evidence.Commits == nil {
		t.Evidence.Commits = StringList{}
	}
	if t.Evidence.Tests == nil {
		t.Evidence.Tests = StringList{}
	}
	if t.Evidence.PRs == nil {
		t.Evidence.PRs = StringList{}
	}
}
