package run

import (
	"context"
	"log/slog"
	"maps"
	"runtime/debug"
	"slices"

	"github.com/CZERTAINLY/procrun/internal/bridge"
	"github.com/CZERTAINLY/procrun/internal/log"

	"github.com/google/uuid"
)

// Runner is a reusable execution configuration, similar to exec.Cmd but not
// bound to a single program. All setters return the Runner for chaining.
// The zero value is ready to use and behaves like New.
//
// A Runner may be reused sequentially for many executions. It is not safe
// for concurrent use: give each goroutine its own Clone.
type Runner struct {
	dir         string
	envClear    bool
	envRemove   []string
	env         map[string]string
	stdout      []Observer
	stderr      []Observer
	enforceCode *int
	capture     bool
	executor    Executor
}

// New returns a Runner inheriting the parent's directory and environment,
// enforcing no exit code, capturing nothing and executing with Tasks.
func New() *Runner {
	return &Runner{
		env:      make(map[string]string),
		executor: Tasks{},
	}
}

// Dir sets the working directory of the child; an empty dir inherits ours.
func (r *Runner) Dir(dir string) *Runner {
	r.dir = dir
	return r
}

// ClearEnv starts the child from an empty environment. RemoveEnv entries
// have no effect then; Env entries are still added.
func (r *Runner) ClearEnv() *Runner {
	r.envClear = true
	return r
}

func (r *Runner) RemoveEnv(names ...string) *Runner {
	r.envRemove = append(r.envRemove, names...)
	return r
}

// Env sets a variable, overwriting an earlier Env call for the same name.
func (r *Runner) Env(name, value string) *Runner {
	if r.env == nil {
		r.env = make(map[string]string)
	}
	r.env[name] = value
	return r
}

func (r *Runner) Envs(vars map[string]string) *Runner {
	if r.env == nil {
		r.env = make(map[string]string, len(vars))
	}
	maps.Copy(r.env, vars)
	return r
}

func (r *Runner) OnStdout(observers ...Observer) *Runner {
	r.stdout = append(r.stdout, observers...)
	return r
}

func (r *Runner) OnStderr(observers ...Observer) *Runner {
	r.stderr = append(r.stderr, observers...)
	return r
}

// EnforceCode makes any other exit code an *ExitCodeError.
func (r *Runner) EnforceCode(code int) *Runner {
	r.enforceCode = &code
	return r
}

func (r *Runner) ClearEnforce() *Runner {
	r.enforceCode = nil
	return r
}

// Enforce is a shortcut for EnforceCode(0) or ClearEnforce.
func (r *Runner) Enforce(value bool) *Runner {
	if value {
		return r.EnforceCode(0)
	}
	return r.ClearEnforce()
}

// Capture controls whether stream text is buffered into the Output.
// Observers are called either way.
func (r *Runner) Capture(value bool) *Runner {
	r.capture = value
	return r
}

func (r *Runner) Executor(executor Executor) *Runner {
	r.executor = executor
	return r
}

// Clone returns an independent copy. Observers themselves are shared.
func (r *Runner) Clone() *Runner {
	c := *r
	c.envRemove = slices.Clone(r.envRemove)
	c.env = maps.Clone(r.env)
	c.stdout = slices.Clone(r.stdout)
	c.stderr = slices.Clone(r.stderr)
	if r.enforceCode != nil {
		code := *r.enforceCode
		c.enforceCode = &code
	}
	return &c
}

func (r *Runner) command(program string, args []string) Command {
	var enforce *int
	if r.enforceCode != nil {
		code := *r.enforceCode
		enforce = &code
	}
	return Command{
		Path:        program,
		Args:        slices.Clone(args),
		Dir:         r.dir,
		Env:         environ(r.envClear, r.envRemove, r.env),
		Stdout:      slices.Clone(r.stdout),
		Stderr:      slices.Clone(r.stderr),
		EnforceCode: enforce,
		Capture:     r.capture,
	}
}

// ExecuteAsync starts program with args and returns immediately. The
// configuration is copied before ExecuteAsync returns.
//
// ctx only carries logging attributes: cancelling it does not stop the
// child, which always runs to completion.
func (r *Runner) ExecuteAsync(ctx context.Context, program string, args ...string) *Pending {
	cmd := r.command(program, args)
	executor := r.executor
	if executor == nil {
		executor = Tasks{}
	}

	ctx = log.ContextAttrs(context.WithoutCancel(ctx), slog.String("run_id", uuid.NewString()))
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer func() {
			if v := recover(); v != nil {
				p.out, p.err = nil, &JoinError{Worker: "executor", Value: v, Stack: debug.Stack()}
			}
		}()

		slog.DebugContext(ctx, "executing", "path", cmd.Path, "args", cmd.Args, "dir", cmd.Dir)
		p.out, p.err = executor.Execute(ctx, cmd)
		if p.err != nil {
			slog.DebugContext(ctx, "execution failed", "path", cmd.Path, "error", p.err)
			return
		}
		slog.DebugContext(ctx, "executed", "path", cmd.Path, "code", p.out.Code())
	}()
	return p
}

// Execute runs program with args and blocks until the child has exited and
// both of its streams are drained.
func (r *Runner) Execute(ctx context.Context, program string, args ...string) (*Output, error) {
	return bridge.BlockOn(ctx, func(ctx context.Context) (*Output, error) {
		return r.ExecuteAsync(ctx, program, args...).Wait()
	})
}
