package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storage package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrMissing is returned when the target file does not exist.
	ErrMissing = errors.New("file missing")

	// ErrUnreadable is returned when the target file exists but cannot be read.
	ErrUnreadable = errors.New("file unreadable")

	// ErrInvalidJSON is returned when the target file is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// IsMissing reports whether err is a missing-file read failure.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}

// LoadError wraps a read failure with the path it occurred on and the
// category the caller should surface. Matches the sentinels via errors.Is.
type LoadError struct {
	Path string
	Kind error // one of ErrMissing, ErrUnreadable, ErrInvalidJSON
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

func (e *LoadError) Is(target error) bool {
	return target == e.Kind
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
