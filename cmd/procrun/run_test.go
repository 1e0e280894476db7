package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Parallel()

	name, value, err := parseEnv("A=b=c")
	require.NoError(t, err)
	require.Equal(t, "A", name)
	require.Equal(t, "b=c", value)

	name, value, err = parseEnv("EMPTY=")
	require.NoError(t, err)
	require.Equal(t, "EMPTY", name)
	require.Empty(t, value)

	for _, kv := range []string{"", "NOVALUE", "=x"} {
		_, _, err := parseEnv(kv)
		require.Error(t, err, kv)
	}
}

func TestParseExecutor(t *testing.T) {
	t.Parallel()

	ex, err := parseExecutor("tasks")
	require.NoError(t, err)
	require.Equal(t, run.Tasks{}, ex)

	ex, err = parseExecutor("threads")
	require.NoError(t, err)
	require.Equal(t, run.Threads{}, ex)

	_, err = parseExecutor("fibers")
	require.ErrorContains(t, err, `unsupported executor "fibers"`)
}

func TestPrintOutput(t *testing.T) {
	t.Parallel()
	lookPath(t, "sh")

	out, err := run.New().Capture(true).Execute(t.Context(), "sh", "-c", "echo hello")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printOutput(&buf, outputText, out))
	require.Empty(t, buf.String())

	require.NoError(t, printOutput(&buf, outputJSON, out))
	require.JSONEq(t, `{"code": 0, "stdout": "hello\n", "stderr": ""}`, buf.String())

	buf.Reset()
	require.NoError(t, printOutput(&buf, outputYAML, out))
	require.True(t, strings.HasPrefix(buf.String(), "code: 0\n"), buf.String())

	require.EqualError(t, printOutput(&buf, "xml", out), `unsupported output format "xml"`)
}

func TestRetry(t *testing.T) {
	saved := newBackOff
	newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(func() { newBackOff = saved })

	unexpected := &run.ExitCodeError{Code: 1, Want: 0}

	var tests = []struct {
		scenario string
		retries  uint64
		failures int
		err      error
		attempts int
		then     error
	}{
		{"no retries", 0, 1, unexpected, 1, run.ErrUnexpectedExitCode},
		{"recovers", 3, 2, unexpected, 3, nil},
		{"exhausted", 2, 10, unexpected, 3, run.ErrUnexpectedExitCode},
		{"permanent", 5, 10, &run.SpawnError{Program: "nope", Err: errors.New("not found")}, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			attempts := 0
			_, err := retry(context.Background(), tt.retries, func() (*run.Output, error) {
				attempts++
				if attempts <= tt.failures {
					return nil, tt.err
				}
				return nil, nil
			})
			require.Equal(t, tt.attempts, attempts)
			switch {
			case tt.then != nil:
				require.ErrorIs(t, err, tt.then)
			case attempts <= tt.failures:
				var spawnErr *run.SpawnError
				require.ErrorAs(t, err, &spawnErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}
