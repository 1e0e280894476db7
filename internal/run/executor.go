package run

import "context"

// Executor runs one Command to completion. Implementations must drain both
// streams concurrently with the process wait and join all three activities
// before returning, whatever fails.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*Output, error)
}

var (
	_ Executor = Threads{}
	_ Executor = Tasks{}
)
