package review

import "errors"

var (
	// ErrToolMissing means the review agent binary could not be found.
	ErrToolMissing = errors.New("review tool not found")
	// ErrToolFailed means the agent ran but exited non-zero.
	ErrToolFailed = errors.New("review tool failed")
	// ErrToolTimeout means the agent exceeded the configured deadline.
	ErrToolTimeout = errors.New("review tool timed out")
	// ErrNoVerdict means the review text carried no terminal verdict tag.
	ErrNoVerdict = errors.New("no verdict in review output")
)
