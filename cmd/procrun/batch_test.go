package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/stretchr/testify/require"
)

func TestParseBatch(t *testing.T) {
	t.Setenv("PROCRUN_BATCH_DIR", "/tmp/x")

	lines, err := parseBatch(strings.NewReader(`# comment
  echo "hello world"

ls -l $PROCRUN_BATCH_DIR
	# indented comment
printf '%s\n' a\ b
`))
	require.NoError(t, err)
	require.Equal(t, []batchLine{
		{No: 2, Argv: []string{"echo", "hello world"}},
		{No: 4, Argv: []string{"ls", "-l", "/tmp/x"}},
		{No: 6, Argv: []string{"printf", `%s\n`, "a b"}},
	}, lines)

	_, err = parseBatch(strings.NewReader("true\necho 'unterminated\n"))
	require.ErrorContains(t, err, "line 2")
}

func TestRunBatch(t *testing.T) {
	t.Parallel()
	lookPath(t, "sh")

	lines := []batchLine{
		{No: 1, Argv: []string{"sh", "-c", "echo a"}},
		{No: 2, Argv: []string{"sh", "-c", "exit 5"}},
		{No: 3, Argv: []string{"procrun-no-such-binary"}},
	}
	results := runBatch(t.Context(), run.New(), 0, lines)
	require.Len(t, results, 3)
	for i, r := range results {
		require.Equal(t, i, r.Index)
	}
	require.NoError(t, results[0].Err)
	require.True(t, results[0].Value.Success())
	require.NoError(t, results[1].Err)
	require.Equal(t, 5, results[1].Value.Code())
	var spawnErr *run.SpawnError
	require.ErrorAs(t, results[2].Err, &spawnErr)

	var buf bytes.Buffer
	err := summary(&buf, lines, results)
	require.EqualError(t, err, "2 of 3 commands failed")
	require.Contains(t, buf.String(), "exit 5")
	require.Contains(t, buf.String(), "3 commands, 2 failed")
}

func TestRunBatchCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	results := runBatch(ctx, run.New(), 1, []batchLine{{No: 1, Argv: []string{"true"}}})
	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Err, errNotStarted)
}

func TestRunBatchCanceledWhileRunning(t *testing.T) {
	t.Parallel()
	lookPath(t, "sh")

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(100*time.Millisecond, cancel)
	t.Cleanup(cancel)

	lines := []batchLine{
		{No: 1, Argv: []string{"sh", "-c", "sleep 0.3; exit 2"}},
		{No: 2, Argv: []string{"true"}},
	}
	results := runBatch(ctx, run.New(), 1, lines)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.Equal(t, 2, results[0].Value.Code())
	require.ErrorIs(t, results[1].Err, errNotStarted)
}
