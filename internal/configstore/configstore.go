// Package configstore manages the hierarchical key/value configuration
// persisted in the workspace config.json. Keys are dotted paths into a tree
// of scalar leaves; reads return a caller-supplied default when the key is
// absent, and writes create intermediate nodes as needed.
package configstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tusk-dev/tusk/internal/storage"
	"github.com/tusk-dev/tusk/internal/workspace"
)

// ErrNotScalar is returned when a get resolves to an intermediate node
// rather than a leaf value.
var ErrNotScalar = errors.New("key resolves to a subtree, not a value")

// Store is the loaded configuration tree for one workspace.
type Store struct {
	path string
	tree map[string]any
}

// Load reads config.json. A missing file yields an empty tree; unreadable
// or malformed files surface as storage errors.
func Load(ws *workspace.Workspace) (*Store, error) {
	st := &Store{path: ws.ConfigPath(), tree: map[string]any{}}
	err := storage.ReadJSON(st.path, &st.tree)
	if err != nil && !errors.Is(err, storage.ErrMissing) {
		return nil, err
	}
	if st.tree == nil {
		st.tree = map[string]any{}
	}
	return st, nil
}

// Get returns the value at the dotted key, or def when the key is absent.
// Resolving through a scalar or stopping at a subtree returns def as well:
// callers asked for a leaf and there is none.
func (s *Store) Get(key string, def any) any {
	node := any(s.tree)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return def
		}
		node, ok = m[part]
		if !ok {
			return def
		}
	}
	if _, isTree := node.(map[string]any); isTree {
		return def
	}
	return node
}

// GetString returns the value at key as a string, or def.
func (s *Store) GetString(key, def string) string {
	v := s.Get(key, def)
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return def
	}
}

// Set stores raw at the dotted key and persists the whole tree atomically.
// String inputs "true", "false", and all-digit values are coerced to their
// typed forms.
func (s *Store) Set(key, raw string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty config key")
	}
	parts := strings.Split(key, ".")
	node := s.tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = Coerce(raw)
	return s.Save()
}

// Save persists the tree atomically.
func (s *Store) Save() error {
	return storage.WriteJSON(s.path, s.tree)
}

// Coerce maps "true"/"false" to bools and all-digit strings to integers;
// anything else stays a string.
func Coerce(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if raw != "" && isDigits(raw) {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
