package run

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func TestDrain(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		input    string
		capture  bool
		lines    []string
		text     *string
	}{
		{"empty", "", true, nil, ptr("")},
		{"empty no capture", "", false, nil, nil},
		{"lines", "a\nb\n", true, []string{"a", "b"}, ptr("a\nb\n")},
		{"no final newline", "a\nb", true, []string{"a", "b"}, ptr("a\nb\n")},
		{"crlf", "a\r\nb\r\n", true, []string{"a", "b"}, ptr("a\nb\n")},
		{"blank lines", "\n\nx\n", true, []string{"", "", "x"}, ptr("\n\nx\n")},
		{"long line", strings.Repeat("x", 1<<20) + "\n", false, []string{strings.Repeat("x", 1<<20)}, nil},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			var got []string
			obs := ObserverFunc(func(_ context.Context, line string) {
				got = append(got, line)
			})
			res := drain(t.Context(), Stdout, io.NopCloser(strings.NewReader(tt.input)), []Observer{obs}, tt.capture)
			require.NoError(t, res.err)
			require.Equal(t, tt.lines, got)
			require.Equal(t, tt.text, res.text)
		})
	}
}

func TestDrainObserverOrder(t *testing.T) {
	t.Parallel()
	var calls []string
	first := ObserverFunc(func(_ context.Context, line string) { calls = append(calls, "first:"+line) })
	second := ObserverFunc(func(_ context.Context, line string) { calls = append(calls, "second:"+line) })

	res := drain(t.Context(), Stderr, io.NopCloser(strings.NewReader("x\ny\n")), []Observer{first, second}, false)
	require.NoError(t, res.err)
	require.Nil(t, res.text)
	require.Equal(t, []string{"first:x", "second:x", "first:y", "second:y"}, calls)
}

func TestDrainFailures(t *testing.T) {
	t.Parallel()

	t.Run("invalid text keeps reading", func(t *testing.T) {
		t.Parallel()
		r := &countingReader{r: strings.NewReader("ok\n\xff\nrest\nmore\n")}
		var got []string
		obs := ObserverFunc(func(_ context.Context, line string) { got = append(got, line) })
		res := drain(t.Context(), Stdout, io.NopCloser(r), []Observer{obs}, true)
		require.ErrorIs(t, res.err, ErrInvalidText)
		require.Nil(t, res.text)
		require.Equal(t, []string{"ok"}, got)
		require.True(t, r.eof, "pipe must be drained to EOF")
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		res := drain(t.Context(), Stderr, io.NopCloser(iotest.ErrReader(io.ErrUnexpectedEOF)), nil, true)
		var drainErr *DrainError
		require.ErrorAs(t, res.err, &drainErr)
		require.Equal(t, Stderr, drainErr.Stream)
		require.ErrorIs(t, res.err, io.ErrUnexpectedEOF)
	})

	t.Run("panic", func(t *testing.T) {
		t.Parallel()
		obs := ObserverFunc(func(context.Context, string) { panic("boom") })
		res := drain(t.Context(), Stdout, io.NopCloser(strings.NewReader("a\nb\n")), []Observer{obs}, true)
		var joinErr *JoinError
		require.ErrorAs(t, res.err, &joinErr)
		require.Equal(t, "stdout", joinErr.Worker)
	})
}

func TestEnviron(t *testing.T) {
	t.Setenv("PROCRUN_ENVIRON", "parent")

	require.Nil(t, environ(false, nil, nil))

	env := environ(true, []string{"X"}, nil)
	require.NotNil(t, env)
	require.Empty(t, env)

	env = environ(true, nil, map[string]string{"B": "2", "A": "1"})
	require.Equal(t, []string{"A=1", "B=2"}, env)

	env = environ(false, []string{"PROCRUN_ENVIRON"}, nil)
	require.NotContains(t, env, "PROCRUN_ENVIRON=parent")

	env = environ(false, nil, map[string]string{"PROCRUN_ENVIRON": "child"})
	require.Contains(t, env, "PROCRUN_ENVIRON=child")
	require.NotContains(t, env, "PROCRUN_ENVIRON=parent")
}

func TestEnvName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "A", envName("A=b=c"))
	require.Equal(t, "=C:", envName(`=C:=C:\`))
	require.Equal(t, "NOVALUE", envName("NOVALUE"))
	require.Equal(t, "", envName(""))
}

type countingReader struct {
	r   io.Reader
	eof bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err == io.EOF {
		c.eof = true
	}
	return n, err
}

func ptr(s string) *string { return &s }
