package main

import (
	"errors"
	"os"

	"github.com/tusk-dev/tusk/internal/review"
)

// Exit codes. Validation failures count as operation failures.
const (
	exitOK          = 0
	exitFailure     = 1
	exitToolFailure = 2
	exitToolTimeout = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	err := Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, review.ErrToolTimeout):
		return exitToolTimeout
	case errors.Is(err, review.ErrToolMissing), errors.Is(err, review.ErrToolFailed):
		return exitToolFailure
	default:
		return exitFailure
	}
}
