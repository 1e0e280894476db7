package run

import (
	"errors"
	"fmt"
)

var (
	ErrStdioHandleMissing = errors.New("child process missing stdio handle")
	ErrExitCodeMissing    = errors.New("child process returned no exit code")
	ErrUnexpectedExitCode = errors.New("command exited with unexpected status code")
	ErrInvalidText        = errors.New("line is not valid UTF-8")
	ErrShellMissing       = errors.New("neither bash nor sh were found in $PATH")
)

// SpawnError is returned when the operating system refuses to start the
// program. Err is the underlying *exec.Error or *os.PathError.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StdioError is returned when a pipe for one of the output streams
// could not be set up.
type StdioError struct {
	Stream Stream
	Err    error
}

func (e *StdioError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrStdioHandleMissing, e.Stream, e.Err)
}

func (e *StdioError) Unwrap() []error { return []error{ErrStdioHandleMissing, e.Err} }

// ExitCodeError carries the observed code of a process whose exit code did
// not match the enforced one.
type ExitCodeError struct {
	Code int
	Want int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%v `%d` (want %d)", ErrUnexpectedExitCode, e.Code, e.Want)
}

func (e *ExitCodeError) Is(target error) bool { return target == ErrUnexpectedExitCode }

// DrainError means a stream could not be read or decoded. The whole
// execution fails even if the other stream was fine.
type DrainError struct {
	Stream Stream
	Err    error
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("draining %s: %v", e.Stream, e.Err)
}

func (e *DrainError) Unwrap() error { return e.Err }

// JoinError reports a worker that did not finish normally, typically
// because an observer panicked.
type JoinError struct {
	Worker string
	Value  any
	Stack  []byte
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("failed to join %s worker: %v", e.Worker, e.Value)
}
