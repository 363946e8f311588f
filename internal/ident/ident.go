// Package ident parses, formats, and allocates epic and task identifiers.
//
// Identifiers are canonical strings: an epic is "E-N", a task is "E-N.M",
// with N and M >= 1. Allocation is scan-based: the next number is one greater
// than the maximum observed among existing JSON files, so identifiers are
// never reused and holes left by branch merges are never refilled.
package ident

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefix is the identifier prefix used unless the workspace
// configures another one.
const DefaultPrefix = "E"

// ErrMalformed is returned when an input string does not match the epic or
// task identifier pattern.
var ErrMalformed = errors.New("malformed identifier")

// Scheme formats and parses identifiers for one workspace prefix.
type Scheme struct {
	Prefix string
}

// NewScheme returns a scheme for the given prefix, falling back to
// DefaultPrefix when prefix is empty.
func NewScheme(prefix string) Scheme {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Scheme{Prefix: prefix}
}

func (s Scheme) epicPattern() *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(s.Prefix) + `-(\d+)$`)
}

func (s Scheme) taskPattern() *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(s.Prefix) + `-(\d+)\.(\d+)$`)
}

// Epic formats an epic identifier from its number.
func (s Scheme) Epic(n int) string {
	return fmt.Sprintf("%s-%d", s.Prefix, n)
}

// Task formats a task identifier from its epic and task numbers.
func (s Scheme) Task(n, m int) string {
	return fmt.Sprintf("%s-%d.%d", s.Prefix, n, m)
}

// ParseEpic returns the epic number of id, or ErrMalformed.
func (s Scheme) ParseEpic(id string) (int, error) {
	match := s.epicPattern().FindStringSubmatch(id)
	if match == nil {
		return 0, fmt.Errorf("%w: %q is not an epic id (want %s-N)", ErrMalformed, id, s.Prefix)
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return n, nil
}

// ParseTask returns the epic and task numbers of id, or ErrMalformed.
func (s Scheme) ParseTask(id string) (epic, task int, err error) {
	match := s.taskPattern().FindStringSubmatch(id)
	if match == nil {
		return 0, 0, fmt.Errorf("%w: %q is not a task id (want %s-N.M)", ErrMalformed, id, s.Prefix)
	}
	epic, err = strconv.Atoi(match[1])
	if err != nil || epic < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	task, err = strconv.Atoi(match[2])
	if err != nil || task < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return epic, task, nil
}

// IsEpic reports whether id is a well-formed epic identifier.
func (s Scheme) IsEpic(id string) bool {
	_, err := s.ParseEpic(id)
	return err == nil
}

// IsTask reports whether id is a well-formed task identifier.
func (s Scheme) IsTask(id string) bool {
	_, _, err := s.ParseTask(id)
	return err == nil
}

// EpicOf returns the epic identifier a task identifier belongs to.
func (s Scheme) EpicOf(taskID string) (string, error) {
	n, _, err := s.ParseTask(taskID)
	if err != nil {
		return "", err
	}
	return s.Epic(n), nil
}

// NextEpicNum scans epicsDir for epic JSON files and returns one greater
// than the maximum epic number found, or 1 for an empty directory.
func (s Scheme) NextEpicNum(epicsDir string) (int, error) {
	entries, err := os.ReadDir(epicsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		n, err := s.ParseEpic(name)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// NextTaskNum scans tasksDir for task JSON files under epic number epicNum
// and returns one greater than the maximum task number found, or 1.
func (s Scheme) NextTaskNum(tasksDir string, epicNum int) (int, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		n, m, err := s.ParseTask(name)
		if err != nil || n != epicNum {
			continue
		}
		if m > max {
			max = m
		}
	}
	return max + 1, nil
}
