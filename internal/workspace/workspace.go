// Package workspace locates and initializes the .tusk workspace directory
// that holds all task-tracking state inside a source repository.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tusk-dev/tusk/internal/storage"
)

// DirName is the workspace directory created at the repository root.
const DirName = ".tusk"

// Schema versions the current build can read; writes always use SchemaVersion.
const SchemaVersion = 2

var supportedSchemas = map[int]bool{1: true, 2: true}

var (
	// ErrNotFound is returned when no workspace directory exists between the
	// start directory and the filesystem root.
	ErrNotFound = errors.New("no " + DirName + " workspace found")

	// ErrExists is returned by Init when the workspace is already present.
	ErrExists = errors.New("workspace already initialized")
)

// SchemaError is returned when meta.json carries an unsupported version.
type SchemaError struct {
	Found int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unsupported schema_version %d (supported: 1, 2)", e.Found)
}

// Meta is the root record of the store. NextEpic is a legacy counter some
// older workspaces carry; it is read-compatible but never authoritative,
// identifier allocation is scan-based.
type Meta struct {
	SchemaVersion int `json:"schema_version"`
	NextEpic      int `json:"next_epic,omitempty"`
}

// Workspace is a located .tusk directory and the repository root above it.
type Workspace struct {
	Root string // repository root
	Dir  string // <Root>/.tusk
}

// Find walks up from start looking for a workspace directory. An empty
// start means the current working directory.
func Find(start string) (*Workspace, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}
	current, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(current, DirName)
		info, err := os.Stat(candidate)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%s exists but is not a directory", candidate)
			}
			return &Workspace{Root: current, Dir: candidate}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, fmt.Errorf("%w (run tusk init)", ErrNotFound)
		}
		current = parent
	}
}

// Open locates the workspace and verifies its schema version.
func Open(start string) (*Workspace, error) {
	ws, err := Find(start)
	if err != nil {
		return nil, err
	}
	if _, err := ws.LoadMeta(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Init creates the workspace layout under root and writes the initial
// metadata and empty config.
func Init(root string) (*Workspace, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{Root: abs, Dir: filepath.Join(abs, DirName)}
	if storage.Exists(ws.MetaPath()) {
		return nil, fmt.Errorf("%w at %s", ErrExists, ws.Dir)
	}
	for _, dir := range []string{ws.EpicsDir(), ws.SpecsDir(), ws.TasksDir(), ws.MemoryDir(), ws.ReviewsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := storage.WriteJSON(ws.MetaPath(), &Meta{SchemaVersion: SchemaVersion}); err != nil {
		return nil, err
	}
	if err := storage.WriteJSON(ws.ConfigPath(), map[string]any{}); err != nil {
		return nil, err
	}
	return ws, nil
}

// LoadMeta reads and validates meta.json.
func (ws *Workspace) LoadMeta() (*Meta, error) {
	var meta Meta
	if err := storage.ReadJSON(ws.MetaPath(), &meta); err != nil {
		return nil, err
	}
	if !supportedSchemas[meta.SchemaVersion] {
		return nil, &SchemaError{Found: meta.SchemaVersion}
	}
	return &meta, nil
}

func (ws *Workspace) MetaPath() string   { return filepath.Join(ws.Dir, "meta.json") }
func (ws *Workspace) ConfigPath() string { return filepath.Join(ws.Dir, "config.json") }
func (ws *Workspace) EpicsDir() string   { return filepath.Join(ws.Dir, "epics") }
func (ws *Workspace) SpecsDir() string   { return filepath.Join(ws.Dir, "specs") }
func (ws *Workspace) TasksDir() string   { return filepath.Join(ws.Dir, "tasks") }
func (ws *Workspace) MemoryDir() string  { return filepath.Join(ws.Dir, "memory") }
func (ws *Workspace) ReviewsDir() string { return filepath.Join(ws.Dir, "reviews") }

// EpicJSONPath returns the state record path for an epic id.
func (ws *Workspace) EpicJSONPath(id string) string {
	return filepath.Join(ws.EpicsDir(), id+".json")
}

// EpicSpecPath returns the plan document path for an epic id.
func (ws *Workspace) EpicSpecPath(id string) string {
	return filepath.Join(ws.SpecsDir(), id+".md")
}

// TaskJSONPath returns the state record path for a task id. Tasks are peers
// in a flat directory keyed by full id, so there are no nested-directory
// rename hazards.
func (ws *Workspace) TaskJSONPath(id string) string {
	return filepath.Join(ws.TasksDir(), id+".json")
}

// TaskSpecPath returns the spec document path for a task id.
func (ws *Workspace) TaskSpecPath(id string) string {
	return filepath.Join(ws.TasksDir(), id+".md")
}

// RelPath returns path relative to the repository root, for storing in
// entity records.
func (ws *Workspace) RelPath(path string) string {
	rel, err := filepath.Rel(ws.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
