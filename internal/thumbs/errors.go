package thumbs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFit is returned for a resize fit outside the supported set.
	ErrInvalidFit = errors.New("invalid resize fit")
	// ErrNotFound is returned when the source file does not exist or cannot be read.
	ErrNotFound = errors.New("source file not found")
	// ErrUnsupportedFormat is returned for source files outside the supported formats.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrToolUnavailable is returned when the external RAW decode tool is missing
	// or not executable.
	ErrToolUnavailable = errors.New("raw decode tool unavailable")
	// ErrLocked means another caller is already generating for this content hash.
	// It is a normal coalescing outcome, not a failure.
	ErrLocked = errors.New("thumbnail is already being generated")
)

// ToolError carries the exit status and captured stderr of a failed
// external decode tool invocation.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed: %v, stderr: %s", e.Tool, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }
