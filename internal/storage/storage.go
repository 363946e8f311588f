// Package storage provides the durable file layer for the tusk workspace.
//
// Every write follows the same discipline: write the full content to a
// temporary file in the target's directory, sync, then rename over the
// target. An external reader sees either the prior state or the new state,
// never a truncated file. Reads classify failures into the three categories
// callers care about: missing, unreadable, invalid JSON.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWrite writes to path via a temp file and atomic rename. Parent
// directories are created on demand. On error the temp file is removed and
// the target is left untouched.
func AtomicWrite(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeFunc(tmpFile); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write content: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}

// WriteFile atomically writes raw bytes to path.
func WriteFile(path string, data []byte) error {
	return AtomicWrite(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteJSON atomically writes v as indented JSON with a trailing newline.
// encoding/json sorts map keys and emits struct fields in declaration order,
// so repeated writes of equal values are byte-identical and diff minimally.
func WriteJSON(path string, v any) error {
	return AtomicWrite(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// ReadFile reads path, classifying failures as missing or unreadable.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Path: path, Kind: ErrMissing}
		}
		return nil, &LoadError{Path: path, Kind: ErrUnreadable, Err: err}
	}
	return data, nil
}

// ReadJSON reads path and unmarshals it into v, classifying failures as
// missing, unreadable, or invalid JSON.
func ReadJSON(path string, v any) error {
	data, err := ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return &LoadError{Path: path, Kind: ErrInvalidJSON, Err: err}
	}
	return nil
}

// Exists reports whether path exists (as any file type).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
