package run

import (
	"context"
	"runtime"
)

// Threads runs the process wait and each drain on a goroutine wired to its
// own OS thread. Results come back over single-use channels.
type Threads struct{}

func (Threads) Execute(ctx context.Context, cmd Command) (*Output, error) {
	p, err := start(cmd)
	if err != nil {
		return nil, err
	}

	outCh := make(chan drained, 1)
	errCh := make(chan drained, 1)
	exitCh := make(chan exited, 1)

	// drains go first so nothing waits on a child stuck on a full pipe
	go onThread(func() {
		outCh <- drain(ctx, Stdout, p.stdout, cmd.Stdout, cmd.Capture)
	})
	go onThread(func() {
		errCh <- drain(ctx, Stderr, p.stderr, cmd.Stderr, cmd.Capture)
	})
	go onThread(func() {
		exitCh <- p.wait()
	})

	ex := <-exitCh
	stdout := <-outCh
	stderr := <-errCh
	return assemble(cmd, ex, stdout, stderr)
}

func onThread(fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	fn()
}
