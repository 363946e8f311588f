// Package lifecycle implements the task state machine and the soft-claim
// protocol: start, done, block, and the epic closure gate.
//
// Claims are advisory. Another actor cannot start or complete a claimed
// task without --force; force overwrites the claim fields and leaves a
// takeover note visible in JSON diffs. There is no lock anywhere.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tusk-dev/tusk/internal/specdoc"
	"github.com/tusk-dev/tusk/internal/store"
)

// Engine applies lifecycle transitions for one actor against one store.
type Engine struct {
	Store *store.Store
	Actor string
}

// Start moves a task to in_progress and claims it for the engine's actor.
// Guards (all bypassed by force): every dependency done, task not already
// done, task unclaimed or claimed by this actor. Restarting an own claim is
// a no-op resume. Force on a foreign claim records a takeover note.
func (e *Engine) Start(taskID string, force bool, note string) (*store.Task, error) {
	task, err := e.Store.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	// Done is terminal for start, even with force.
	if task.Status == store.StatusDone {
		return nil, &TransitionError{Task: taskID, From: task.Status, Op: "start"}
	}

	prior := ""
	if task.Assignee != nil {
		prior = *task.Assignee
	}
	if !force {
		if task.Status == store.StatusBlocked {
			return nil, &TransitionError{Task: taskID, From: task.Status, Op: "start"}
		}
		if prior != "" && prior != e.Actor {
			return nil, &ClaimConflictError{Task: taskID, Claimant: prior}
		}
		if unmet := e.unmetDeps(task); len(unmet) > 0 {
			return nil, &DepsNotDoneError{Task: taskID, Unmet: unmet}
		}
	}

	if force && note == "" && prior != "" && prior != e.Actor {
		note = fmt.Sprintf("takeover from %s", prior)
	}

	now := store.NowUTC()
	task.Status = store.StatusInProgress
	task.Assignee = &e.Actor
	task.ClaimedAt = &now
	if note != "" {
		task.ClaimNote = note
	}
	if err := e.Store.SaveTask(task); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Str("actor", e.Actor).Bool("force", force).Msg("started task")
	return task, nil
}

// Done completes a task with a summary and structured evidence. Without
// force the caller must be the current claimant and the task in_progress.
// The spec document is written before the JSON record so that a done
// status is never observable without its evidence.
func (e *Engine) Done(taskID, summary string, evidence store.Evidence, force bool) (*store.Task, error) {
	task, err := e.Store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("done requires a non-empty summary")
	}
	if task.Status == store.StatusDone {
		return nil, &TransitionError{Task: taskID, From: task.Status, Op: "done"}
	}
	if !force {
		if task.Status != store.StatusInProgress {
			return nil, &TransitionError{Task: taskID, From: task.Status, Op: "done"}
		}
		if task.Assignee == nil || *task.Assignee != e.Actor {
			claimant := ""
			if task.Assignee != nil {
				claimant = *task.Assignee
			}
			return nil, &ClaimConflictError{Task: taskID, Claimant: claimant}
		}
	}

	normalizeEvidence(&evidence)

	if err := e.Store.PatchTaskSpec(taskID, func(doc *specdoc.Doc) error {
		if err := doc.Append(specdoc.SectionDoneSummary, strings.TrimSpace(summary)); err != nil {
			return err
		}
		return doc.Patch(specdoc.SectionEvidence, renderEvidence(evidence))
	}); err != nil {
		return nil, err
	}

	task.Status = store.StatusDone
	task.Evidence = evidence
	if err := e.Store.SaveTask(task); err != nil {
		return nil, err
	}
	log.Debug().Str("task", taskID).Msg("completed task")
	return task, nil
}

// Block marks a task blocked with a reason. The reason is appended to the
// Done summary section prefixed with "Blocked:", preserving prior content.
// Done tasks cannot be blocked; a blocked task is unblocked by a later
// start --force.
func (e *Engine) Block(taskID, reason string) (*store.Task, error) {
	task, err := e.Store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("block requires a non-empty reason")
	}
	if task.Status == store.StatusDone {
		return nil, &TransitionError{Task: taskID, From: task.Status, Op: "block"}
	}

	if err := e.Store.PatchTaskSpec(taskID, func(doc *specdoc.Doc) error {
		return doc.Append(specdoc.SectionDoneSummary, "Blocked: "+strings.TrimSpace(reason))
	}); err != nil {
		return nil, err
	}

	task.Status = store.StatusBlocked
	if err := e.Store.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// CloseEpic marks an epic done once every task under it is done. Closing
// an already-closed epic succeeds idempotently; the second return reports
// whether the epic was already closed.
func (e *Engine) CloseEpic(epicID string) (*store.Epic, bool, error) {
	epic, err := e.Store.GetEpic(epicID)
	if err != nil {
		return nil, false, err
	}
	if epic.Status == store.EpicDone {
		return epic, true, nil
	}
	tasks, err := e.Store.ListTasks(epicID, "")
	if err != nil {
		return nil, false, err
	}
	var open []OpenTask
	for _, task := range tasks {
		if task.Status != store.StatusDone {
			open = append(open, OpenTask{ID: task.ID, Status: task.Status})
		}
	}
	if len(open) > 0 {
		return nil, false, &EpicNotClosableError{Epic: epicID, Open: open}
	}
	epic.Status = store.EpicDone
	if err := e.Store.SaveEpic(epic); err != nil {
		return nil, false, err
	}
	return epic, false, nil
}

// unmetDeps returns the dependencies of task that are missing or not done.
func (e *Engine) unmetDeps(task *store.Task) []string {
	var unmet []string
	for _, dep := range task.DependsOn {
		other, err := e.Store.GetTask(dep)
		if err != nil || other.Status != store.StatusDone {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

func normalizeEvidence(ev *store.Evidence) {
	if ev.Commits == nil {
		ev.Commits = store.StringList{}
	}
	if ev.Tests == nil {
		ev.Tests = store.StringList{}
	}
	if ev.PRs == nil {
		ev.PRs = store.StringList{}
	}
}

// renderEvidence formats the evidence object as the three labeled lines
// written into the Evidence section.
func renderEvidence(ev store.Evidence) string {
	return strings.Join([]string{
		"- Commits: " + joinOrNone(ev.Commits),
		"- Tests: " + joinOrNone(ev.Tests),
		"- PRs: " + joinOrNone(ev.PRs),
	}, "\n")
}

func joinOrNone(items store.StringList) string {
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, ", ")
}
