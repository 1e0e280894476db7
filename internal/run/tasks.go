package run

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Tasks schedules the process wait and the two drains as errgroup tasks on
// the Go scheduler. This is the default Executor.
type Tasks struct{}

func (Tasks) Execute(ctx context.Context, cmd Command) (*Output, error) {
	p, err := start(cmd)
	if err != nil {
		return nil, err
	}

	var (
		g              errgroup.Group
		stdout, stderr drained
		ex             exited
	)
	g.Go(func() error {
		stdout = drain(ctx, Stdout, p.stdout, cmd.Stdout, cmd.Capture)
		return stdout.err
	})
	g.Go(func() error {
		stderr = drain(ctx, Stderr, p.stderr, cmd.Stderr, cmd.Capture)
		return stderr.err
	})
	g.Go(func() error {
		ex = p.wait()
		return ex.err
	})

	_ = g.Wait() // the first error is not necessarily the reported one, see assemble
	return assemble(cmd, ex, stdout, stderr)
}
