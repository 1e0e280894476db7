package run

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// process is the per-call execution handle: the started child and the read
// ends of its two pipes. Each read end is closed by its drain worker.
type process struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File
}

// exited is what the wait activity hands back to the executor.
type exited struct {
	code int
	err  error
}

// start spawns the child with stdin on the null device and each output
// stream on its own pipe. The pipes are plain os.Pipe files, so unlike
// exec.Cmd.StdoutPipe the process may be waited for while they are still
// being read.
func start(c Command) (*process, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &StdioError{Stream: Stdout, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeFiles(outR, outW)
		return nil, &StdioError{Stream: Stderr, Err: err}
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = outW
	cmd.Stderr = errW
	if err := cmd.Start(); err != nil {
		closeFiles(outR, outW, errR, errW)
		return nil, &SpawnError{Program: c.Path, Err: err}
	}

	// the child owns the write ends now, ours would keep EOF from arriving
	closeFiles(outW, errW)
	return &process{cmd: cmd, stdout: outR, stderr: errR}, nil
}

func (p *process) wait() exited {
	err := p.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return exited{err: fmt.Errorf("waiting for %s: %w", p.cmd.Path, err)}
		}
	}
	state := p.cmd.ProcessState
	if state == nil || !state.Exited() {
		return exited{err: fmt.Errorf("%w: %v", ErrExitCodeMissing, state)}
	}
	return exited{code: state.ExitCode()}
}

// assemble joins the results of the three activities. Failures take
// precedence in the order wait, stdout, stderr, enforcement, and any
// failure drops the captured text.
func assemble(c Command, ex exited, stdout, stderr drained) (*Output, error) {
	switch {
	case ex.err != nil:
		return nil, ex.err
	case stdout.err != nil:
		return nil, stdout.err
	case stderr.err != nil:
		return nil, stderr.err
	}
	if c.EnforceCode != nil && *c.EnforceCode != ex.code {
		return nil, &ExitCodeError{Code: ex.code, Want: *c.EnforceCode}
	}
	return newOutput(ex.code, stdout.text, stderr.text), nil
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
