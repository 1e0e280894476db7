package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/CZERTAINLY/procrun/internal/log"
	"github.com/CZERTAINLY/procrun/internal/model"
	"github.com/CZERTAINLY/procrun/internal/parallel"
	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"
)

var (
	flagBatchJobs     int
	flagBatchExecutor string
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] FILE",
	Short: "Run every command line of FILE, - reads stdin",
	Long: `Run every command line of FILE in parallel.

Lines are split into words the way a POSIX shell does it, without running
a shell. Empty lines and lines starting with # are skipped. Child output
goes to the log, a summary table is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: doBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&flagBatchJobs, "jobs", "j", runtime.NumCPU(), "run at most `N` commands at a time, 0 means no limit")
	batchCmd.Flags().StringVar(&flagBatchExecutor, "executor", "", "executor to drive the children: tasks or threads")
}

// batchLine is one parsed command of a batch file.
type batchLine struct {
	No   int
	Argv []string
}

func (l batchLine) String() string {
	return strings.Join(l.Argv, " ")
}

// parseBatch reads commands from r. Variables are expanded from the
// procrun environment.
func parseBatch(r io.Reader) ([]batchLine, error) {
	var lines []batchLine
	scanner := bufio.NewScanner(r)
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		argv, err := shell.Fields(text, os.Getenv)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", no, err)
		}
		if len(argv) == 0 {
			continue
		}
		lines = append(lines, batchLine{No: no, Argv: argv})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func doBatch(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		in = f
	}

	lines, err := parseBatch(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	// child lines always go to the log, tagged with the line number
	var profile model.RunnerConfig
	if config.Runner != nil {
		profile = *config.Runner
	}
	profile.LogLines = nil
	base := profile.Runner().
		OnStdout(run.LogLines(run.Stdout)).
		OnStderr(run.LogLines(run.Stderr))
	if cmd.Flags().Changed("executor") {
		executor, err := parseExecutor(flagBatchExecutor)
		if err != nil {
			return err
		}
		base.Executor(executor)
	}

	results := runBatch(cmd.Context(), base, flagBatchJobs, lines)
	return summary(cmd.OutOrStdout(), lines, results)
}

var errNotStarted = errors.New("not started")

// runBatch executes every line with its own clone of base and returns the
// results ordered as lines. Lines never started, because ctx was canceled,
// fail with errNotStarted.
func runBatch(ctx context.Context, base *run.Runner, jobs int, lines []batchLine) []parallel.Result[*run.Output] {
	results := make([]parallel.Result[*run.Output], len(lines))
	for i := range results {
		results[i] = parallel.Result[*run.Output]{Index: i, Err: errNotStarted}
	}

	m := parallel.NewMap(ctx, jobs, func(ctx context.Context, line batchLine) (*run.Output, error) {
		ctx = log.ContextAttrs(ctx, slog.Int("line", line.No))
		return base.Clone().Execute(ctx, line.Argv[0], line.Argv[1:]...)
	})
	for r := range m.Iter(slices.Values(lines)) {
		results[r.Index] = r
	}
	return results
}

func summary(w io.Writer, lines []batchLine, results []parallel.Result[*run.Output]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	failed := 0
	for i, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = r.Err.Error()
			failed++
		case !r.Value.Success():
			status = fmt.Sprintf("exit %d", r.Value.Code())
			failed++
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", lines[i].No, lines[i], status)
	}
	fmt.Fprintf(tw, "\t%d commands, %d failed\t\n", len(results), failed)
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(results))
	}
	return nil
}
