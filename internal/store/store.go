package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tusk-dev/tusk/internal/configstore"
	"github.com/tusk-dev/tusk/internal/ident"
	"github.com/tusk-dev/tusk/internal/specdoc"
	"github.com/tusk-dev/tusk/internal/storage"
	"github.com/tusk-dev/tusk/internal/workspace"
)

// Store reads and writes epics and tasks in one workspace. Writes always
// follow read, mutate, atomically persist; reads never mutate.
type Store struct {
	WS  *workspace.Workspace
	IDs ident.Scheme
}

// Open loads the workspace configuration and returns a store using the
// configured identifier prefix.
func Open(ws *workspace.Workspace) (*Store, error) {
	cfg, err := configstore.Load(ws)
	if err != nil {
		return nil, err
	}
	prefix := cfg.GetString("ids.prefix", ident.DefaultPrefix)
	return &Store{WS: ws, IDs: ident.NewScheme(prefix)}, nil
}

// CreateEpic allocates the next epic id by scan, writes the plan scaffold
// and the state record. The branch name defaults to the id.
func (s *Store) CreateEpic(title, branch string) (*Epic, error) {
	num, err := s.IDs.NextEpicNum(s.WS.EpicsDir())
	if err != nil {
		return nil, err
	}
	id := s.IDs.Epic(num)
	jsonPath := s.WS.EpicJSONPath(id)
	specPath := s.WS.EpicSpecPath(id)
	if storage.Exists(jsonPath) || storage.Exists(specPath) {
		return nil, fmt.Errorf("%w: %s already present on disk", ErrCollision, id)
	}
	if branch == "" {
		branch = id
	}
	now := NowUTC()
	epic := &Epic{
		ID:               id,
		Title:            title,
		Status:           EpicOpen,
		PlanReviewStatus: ReviewUnknown,
		BranchName:       branch,
		DependsOnEpics:   []string{},
		SpecPath:         s.WS.RelPath(specPath),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// Spec first, record second: a record must never exist without its
	// paired document.
	if err := storage.WriteFile(specPath, []byte(specdoc.NewEpicPlan(id, title))); err != nil {
		return nil, err
	}
	if err := storage.WriteJSON(jsonPath, epic); err != nil {
		return nil, err
	}
	log.Debug().Str("epic", id).Msg("created epic")
	return epic, nil
}

// CreateTask allocates the next task id under epicID by scan and writes the
// spec scaffold plus the state record. Dependencies must resolve to
// existing tasks in the same epic.
func (s *Store) CreateTask(epicID, title string, deps []string, acceptance string, priority *int) (*Task, error) {
	epicNum, err := s.IDs.ParseEpic(epicID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetEpic(epicID); err != nil {
		return nil, err
	}
	num, err := s.IDs.NextTaskNum(s.WS.TasksDir(), epicNum)
	if err != nil {
		return nil, err
	}
	id := s.IDs.Task(epicNum, num)
	jsonPath := s.WS.TaskJSONPath(id)
	specPath := s.WS.TaskSpecPath(id)
	if storage.Exists(jsonPath) || storage.Exists(specPath) {
		return nil, fmt.Errorf("%w: %s already present on disk", ErrCollision, id)
	}
	for _, dep := range deps {
		if err := s.checkDep(id, epicID, dep); err != nil {
			return nil, err
		}
	}
	now := NowUTC()
	task := &Task{
		ID:        id,
		Epic:      epicID,
		Title:     title,
		Status:    StatusTodo,
		Priority:  priority,
		DependsOn: normalizeDeps(deps),
		SpecPath:  s.WS.RelPath(specPath),
		Evidence:  Evidence{Commits: StringList{}, Tests: StringList{}, PRs: StringList{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := storage.WriteFile(specPath, []byte(specdoc.NewTaskSpec(id, title, "", acceptance))); err != nil {
		return nil, err
	}
	if err := storage.WriteJSON(jsonPath, task); err != nil {
		return nil, err
	}
	log.Debug().Str("task", id).Str("epic", epicID).Msg("created task")
	return task, nil
}

// GetEpic loads and normalizes one epic record.
func (s *Store) GetEpic(id string) (*Epic, error) {
	if _, err := s.IDs.ParseEpic(id); err != nil {
		return nil, err
	}
	var epic Epic
	if err := storage.ReadJSON(s.WS.EpicJSONPath(id), &epic); err != nil {
		if isMissing(err) {
			return nil, &NotFoundError{Kind: "epic", ID: id}
		}
		return nil, err
	}
	normalizeEpic(&epic)
	return &epic, nil
}

// GetTask loads and normalizes one task record.
func (s *Store) GetTask(id string) (*Task, error) {
	if _, _, err := s.IDs.ParseTask(id); err != nil {
		return nil, err
	}
	var task Task
	if err := storage.ReadJSON(s.WS.TaskJSONPath(id), &task); err != nil {
		if isMissing(err) {
			return nil, &NotFoundError{Kind: "task", ID: id}
		}
		return nil, err
	}
	normalizeTask(&task)
	return &task, nil
}

// ListEpics returns all epics ordered by epic number.
func (s *Store) ListEpics() ([]*Epic, error) {
	ids, err := s.scanIDs(s.WS.EpicsDir(), s.IDs.IsEpic)
	if err != nil {
		return nil, err
	}
	epics := make([]*Epic, 0, len(ids))
	for _, id := range ids {
		epic, err := s.GetEpic(id)
		if err != nil {
			return nil, err
		}
		epics = append(epics, epic)
	}
	sort.Slice(epics, func(i, j int) bool {
		a, _ := s.IDs.ParseEpic(epics[i].ID)
		b, _ := s.IDs.ParseEpic(epics[j].ID)
		return a < b
	})
	return epics, nil
}

// ListTasks returns tasks, optionally filtered by epic id and status,
// ordered by (epic number, task number).
func (s *Store) ListTasks(epicID, status string) ([]*Task, error) {
	ids, err := s.scanIDs(s.WS.TasksDir(), s.IDs.IsTask)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetTask(id)
		if err != nil {
			return nil, err
		}
		if epicID != "" && task.Epic != epicID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		an, am, _ := s.IDs.ParseTask(tasks[i].ID)
		bn, bm, _ := s.IDs.ParseTask(tasks[j].ID)
		if an != bn {
			return an < bn
		}
		return am < bm
	})
	return tasks, nil
}

// SaveEpic persists an epic record, bumping updated_at.
func (s *Store) SaveEpic(epic *Epic) error {
	epic.UpdatedAt = NowUTC()
	return storage.WriteJSON(s.WS.EpicJSONPath(epic.ID), epic)
}

// SaveTask persists a task record, bumping updated_at. Task mutations do
// not touch the parent epic record; that keeps epic JSON out of the merge
// hot path.
func (s *Store) SaveTask(task *Task) error {
	task.UpdatedAt = NowUTC()
	return storage.WriteJSON(s.WS.TaskJSONPath(task.ID), task)
}

// AddDependency records that taskID depends on depID. Both must exist in
// the same epic; self-dependencies and cycles are rejected.
func (s *Store) AddDependency(taskID, depID string) (*Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDep(taskID, task.Epic, depID); err != nil {
		return nil, err
	}
	for _, existing := range task.DependsOn {
		if existing == depID {
			return task, nil // already recorded
		}
	}
	candidate := append(append([]string{}, task.DependsOn...), depID)
	if err := s.checkAcyclic(task.Epic, taskID, candidate); err != nil {
		return nil, err
	}
	task.DependsOn = normalizeDeps(candidate)
	if err := s.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// SetEpicPlan overwrites the epic's plan document and bumps updated_at.
func (s *Store) SetEpicPlan(id string, text string) (*Epic, error) {
	epic, err := s.GetEpic(id)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteFile(s.WS.EpicSpecPath(id), []byte(ensureTrailingNewline(text))); err != nil {
		return nil, err
	}
	if err := s.SaveEpic(epic); err != nil {
		return nil, err
	}
	return epic, nil
}

// SetPlanReviewStatus sets the epic's plan review status and stamps
// plan_reviewed_at for terminal verdicts.
func (s *Store) SetPlanReviewStatus(id, status string) (*Epic, error) {
	if !ValidPlanReviewStatus(status) {
		return nil, fmt.Errorf("invalid plan review status %q (want one of %s)",
			status, strings.Join(PlanReviewStatuses, ", "))
	}
	epic, err := s.GetEpic(id)
	if err != nil {
		return nil, err
	}
	epic.PlanReviewStatus = status
	if status == ReviewUnknown {
		epic.PlanReviewedAt = nil
	} else {
		now := NowUTC()
		epic.PlanReviewedAt = &now
	}
	if err := s.SaveEpic(epic); err != nil {
		return nil, err
	}
	return epic, nil
}

// SetBranch sets the epic's branch name.
func (s *Store) SetBranch(id, branch string) (*Epic, error) {
	epic, err := s.GetEpic(id)
	if err != nil {
		return nil, err
	}
	epic.BranchName = branch
	if err := s.SaveEpic(epic); err != nil {
		return nil, err
	}
	return epic, nil
}

// SetTaskSection patches one section of a task spec and bumps the task's
// updated_at. Used for set-description and set-acceptance.
func (s *Store) SetTaskSection(id, heading, body string) (*Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := s.PatchTaskSpec(id, func(doc *specdoc.Doc) error {
		return doc.Patch(heading, body)
	}); err != nil {
		return nil, err
	}
	if err := s.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskSpec loads and parses a task's spec document.
func (s *Store) TaskSpec(id string) (*specdoc.Doc, error) {
	data, err := storage.ReadFile(s.WS.TaskSpecPath(id))
	if err != nil {
		return nil, err
	}
	return specdoc.Parse(string(data)), nil
}

// PatchTaskSpec applies edit to a task spec and writes it back atomically.
func (s *Store) PatchTaskSpec(id string, edit func(*specdoc.Doc) error) error {
	doc, err := s.TaskSpec(id)
	if err != nil {
		return err
	}
	if err := edit(doc); err != nil {
		return err
	}
	return storage.WriteFile(s.WS.TaskSpecPath(id), []byte(doc.String()))
}

// SpecText returns the raw spec document for an epic or task id.
func (s *Store) SpecText(id string) (string, error) {
	var path string
	switch {
	case s.IDs.IsTask(id):
		path = s.WS.TaskSpecPath(id)
	case s.IDs.IsEpic(id):
		path = s.WS.EpicSpecPath(id)
	default:
		return "", fmt.Errorf("%w: %q", ident.ErrMalformed, id)
	}
	data, err := storage.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// checkDep validates one dependency edge: well-formed, same epic, not self,
// target exists.
func (s *Store) checkDep(taskID, epicID, depID string) error {
	depEpic, err := s.IDs.EpicOf(depID)
	if err != nil {
		return err
	}
	if depID == taskID {
		return fmt.Errorf("%w: %s", ErrSelfDep, taskID)
	}
	if depEpic != epicID {
		return fmt.Errorf("%w: %s depends on %s (epic %s)", ErrCrossEpicDep, taskID, depID, depEpic)
	}
	if !storage.Exists(s.WS.TaskJSONPath(depID)) {
		return &NotFoundError{Kind: "task", ID: depID}
	}
	return nil
}

// checkAcyclic rejects the candidate dependency list for taskID when it
// would close a cycle within the epic.
func (s *Store) checkAcyclic(epicID, taskID string, candidate []string) error {
	tasks, err := s.ListTasks(epicID, "")
	if err != nil {
		return err
	}
	deps := make(map[string][]string, len(tasks)+1)
	for _, t := range tasks {
		deps[t.ID] = t.DependsOn
	}
	deps[taskID] = candidate

	visited := map[string]bool{}
	for _, dep := range candidate {
		if reachable(deps, dep, taskID, visited) {
			return fmt.Errorf("%w: %s -> %s", ErrCycle, taskID, dep)
		}
	}
	return nil
}

// reachable reports whether target is reachable from start via deps.
func reachable(deps map[string][]string, start, target string, visited map[string]bool) bool {
	if start == target {
		return true
	}
	if visited[start] {
		return false
	}
	visited[start] = true
	for _, next := range deps[start] {
		if reachable(deps, next, target, visited) {
			return true
		}
	}
	return false
}

func (s *Store) scanIDs(dir string, valid func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok || !valid(name) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

func normalizeDeps(deps []string) []string {
	out := append([]string{}, deps...)
	sort.Strings(out)
	return out
}

func ensureTrailingNewline(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

func isMissing(err error) bool {
	return errors.Is(err, storage.ErrMissing)
}
