package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CZERTAINLY/procrun/internal/bridge"
	"github.com/CZERTAINLY/procrun/internal/log"
	"github.com/CZERTAINLY/procrun/internal/model"
	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/spf13/cobra"
)

// runnerFlags are the per-invocation overrides on top of the runner profile
// from the config file.
type runnerFlags struct {
	dir       string
	env       []string
	envClear  bool
	envRemove []string
	enforce   int
	noEnforce bool
	capture   bool
	executor  string
	retries   uint64
	output    string
	quiet     bool
}

func (f *runnerFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.dir, "dir", "", "working directory of the child")
	fs.StringArrayVar(&f.env, "env", nil, "set environment variable `NAME=VALUE`, can be repeated")
	fs.BoolVar(&f.envClear, "env-clear", false, "start the child with an empty environment")
	fs.StringArrayVar(&f.envRemove, "env-remove", nil, "remove inherited environment variable `NAME`, can be repeated")
	fs.IntVar(&f.enforce, "enforce", 0, "fail unless the child exits with this `CODE`")
	fs.BoolVar(&f.noEnforce, "no-enforce", false, "accept any exit code")
	fs.BoolVar(&f.capture, "capture", false, "capture stdout and stderr text")
	fs.StringVar(&f.executor, "executor", "", "executor to drive the child: tasks or threads")
	fs.Uint64Var(&f.retries, "retries", 0, "retry up to `N` times on unexpected exit code")
	fs.StringVarP(&f.output, "output", "o", outputText, "result format: text, json or yaml")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not stream child lines to the terminal")
	cmd.MarkFlagsMutuallyExclusive("enforce", "no-enforce")
	// everything after the program name belongs to the child
	fs.SetInterspersed(false)
}

// runner builds the runner for one invocation: the config profile first,
// then the flags explicitly set on the command line.
func (f *runnerFlags) runner(cmd *cobra.Command, profile *model.RunnerConfig) (*run.Runner, error) {
	if err := checkOutput(f.output); err != nil {
		return nil, err
	}

	r := profile.Runner()
	fs := cmd.Flags()
	if fs.Changed("dir") {
		r.Dir(f.dir)
	}
	if f.envClear {
		r.ClearEnv()
	}
	r.RemoveEnv(f.envRemove...)
	for _, kv := range f.env {
		name, value, err := parseEnv(kv)
		if err != nil {
			return nil, err
		}
		r.Env(name, value)
	}
	if fs.Changed("enforce") {
		r.EnforceCode(f.enforce)
	}
	if f.noEnforce {
		r.ClearEnforce()
	}
	if fs.Changed("capture") {
		r.Capture(f.capture)
	}
	if fs.Changed("executor") {
		executor, err := parseExecutor(f.executor)
		if err != nil {
			return nil, err
		}
		r.Executor(executor)
	}
	if f.output != outputText {
		// structured documents carry the text, keep the terminal clean
		r.Capture(true)
	} else if !f.quiet {
		r.OnStdout(run.WriteLines(cmd.OutOrStdout()))
		r.OnStderr(run.WriteLines(cmd.ErrOrStderr()))
	}
	return r, nil
}

func parseEnv(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid environment variable %q: expected NAME=VALUE", kv)
	}
	return name, value, nil
}

func parseExecutor(name string) (run.Executor, error) {
	switch name {
	case model.ExecutorTasks:
		return run.Tasks{}, nil
	case model.ExecutorThreads:
		return run.Threads{}, nil
	default:
		return nil, fmt.Errorf("unsupported executor %q: expected %s or %s", name, model.ExecutorTasks, model.ExecutorThreads)
	}
}

var runFlags runnerFlags

var runCmd = &cobra.Command{
	Use:   "run [flags] [--] PROGRAM [ARGS...]",
	Short: "Run a program and stream its output lines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := runFlags.runner(cmd, config.Runner)
		if err != nil {
			return err
		}
		return execute(cmd, r, &runFlags, args[0], args[1:])
	},
}

var shFlags runnerFlags

var shCmd = &cobra.Command{
	Use:   "sh [flags] [--] COMMANDLINE",
	Short: "Run a command line with the first shell found on PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := shFlags.runner(cmd, config.Runner)
		if err != nil {
			return err
		}
		shell, err := run.LookupShell()
		if err != nil {
			return err
		}
		return execute(cmd, r, &shFlags, shell, []string{"-c", args[0]})
	},
}

func init() {
	runFlags.register(runCmd)
	shFlags.register(shCmd)
}

// execute runs the program on the caller's goroutine, retrying unexpected
// exit codes, and prints the result. A non-zero code which was not enforced
// is reported as exitStatus.
func execute(cmd *cobra.Command, r *run.Runner, f *runnerFlags, program string, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("procrun",
		slog.String("cmd", cmd.Name()),
		slog.Int("pid", os.Getpid()),
	))

	out, err := retry(ctx, f.retries, func() (*run.Output, error) {
		return bridge.BlockOnLocal(ctx, func(ctx context.Context) (*run.Output, error) {
			return r.ExecuteAsync(ctx, program, args...).Wait()
		})
	})
	if err != nil {
		return err
	}

	if err := printOutput(cmd.OutOrStdout(), f.output, out); err != nil {
		return err
	}
	if !out.Success() {
		return exitStatus(out.Code())
	}
	return nil
}
