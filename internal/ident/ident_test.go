package ident

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestScheme_Roundtrip(t *testing.T) {
	s := NewScheme("")
	for _, n := range []int{1, 2, 7, 10, 99, 12345} {
		id := s.Epic(n)
		got, err := s.ParseEpic(id)
		if err != nil {
			t.Fatalf("ParseEpic(%q) error = %v", id, err)
		}
		if got != n {
			t.Errorf("ParseEpic(Epic(%d)) = %d", n, got)
		}
		for _, m := range []int{1, 3, 42} {
			tid := s.Task(n, m)
			gn, gm, err := s.ParseTask(tid)
			if err != nil {
				t.Fatalf("ParseTask(%q) error = %v", tid, err)
			}
			if gn != n || gm != m {
				t.Errorf("ParseTask(Task(%d,%d)) = %d,%d", n, m, gn, gm)
			}
		}
	}
}

func TestScheme_ParseRejectsMalformed(t *testing.T) {
	s := NewScheme("E")
	bad := []string{"", "E", "E-", "E-0", "E-x", "e-1", "E-1.", "E-1.0", "E-1.2.3", "F-1", " E-1", "E-1 "}
	for _, id := range bad {
		if _, err := s.ParseEpic(id); err == nil {
			t.Errorf("ParseEpic(%q) expected error", id)
		}
		if _, _, err := s.ParseTask(id); err == nil {
			t.Errorf("ParseTask(%q) expected error", id)
		}
	}
	if _, _, err := s.ParseTask("E-1"); !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseTask(E-1) error = %v, want ErrMalformed", err)
	}
	if _, err := s.ParseEpic("E-1.2"); !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseEpic(E-1.2) error = %v, want ErrMalformed", err)
	}
}

func TestScheme_CustomPrefix(t *testing.T) {
	s := NewScheme("TASK")
	if got := s.Task(2, 5); got != "TASK-2.5" {
		t.Errorf("Task(2,5) = %q", got)
	}
	if _, err := s.ParseEpic("E-1"); err == nil {
		t.Error("ParseEpic(E-1) with TASK prefix expected error")
	}
	epic, err := s.EpicOf("TASK-3.1")
	if err != nil {
		t.Fatal(err)
	}
	if epic != "TASK-3" {
		t.Errorf("EpicOf(TASK-3.1) = %q", epic)
	}
}

func TestNextEpicNum_ScanSkipsHoles(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewScheme("E")

	n, err := s.NextEpicNum(tmpDir)
	if err != nil || n != 1 {
		t.Fatalf("NextEpicNum(empty) = %d, %v, want 1", n, err)
	}

	// Simulate a merge that dropped E-2: scan must yield 4, not refill the hole.
	for _, name := range []string{"E-1.json", "E-3.json", "notes.txt", "E-bad.json"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err = s.NextEpicNum(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("NextEpicNum() = %d, want 4", n)
	}
}

func TestNextTaskNum_ScopedToEpic(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewScheme("E")

	for _, name := range []string{"E-1.1.json", "E-1.3.json", "E-2.9.json", "E-1.2.md"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m, err := s.NextTaskNum(tmpDir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if m != 4 {
		t.Errorf("NextTaskNum(epic 1) = %d, want 4", m)
	}
	m, err = s.NextTaskNum(tmpDir, 3)
	if err != nil {
		t.Fatal(err)
	}
	if m != 1 {
		t.Errorf("NextTaskNum(epic 3) = %d, want 1", m)
	}
}

func TestNextEpicNum_Monotonic(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewScheme("E")
	for i := 1; i <= 5; i++ {
		n, err := s.NextEpicNum(tmpDir)
		if err != nil {
			t.Fatal(err)
		}
		if n != i {
			t.Fatalf("allocation %d: got %d", i, n)
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("%s.json", s.Epic(n)))
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
