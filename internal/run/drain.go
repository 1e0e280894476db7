package run

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"unicode/utf8"
)

// drained is what a drain worker hands back to the executor.
type drained struct {
	text *string
	err  error
}

// drain reads r line by line until EOF, passing every line to the observers
// and, when capturing, to the returned buffer. After the first failure the
// rest of the pipe is still read and thrown away, otherwise the child could
// block on a full pipe and never exit.
func drain(ctx context.Context, stream Stream, r io.ReadCloser, observers []Observer, capture bool) drained {
	defer func() {
		_ = r.Close()
	}()

	br := bufio.NewReader(r)
	var buf strings.Builder
	var failure error
	for {
		line, err := br.ReadString('\n')
		if line != "" && failure == nil {
			line = trimEOL(line)
			failure = dispatch(ctx, stream, line, observers)
			if failure == nil && capture {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.ErrorContext(ctx, "reading stream", "stream", stream, "error", err)
			if failure == nil {
				failure = &DrainError{Stream: stream, Err: err}
			}
			break
		}
	}

	if failure != nil {
		return drained{err: failure}
	}
	if !capture {
		return drained{}
	}
	text := buf.String()
	return drained{text: &text}
}

func dispatch(ctx context.Context, stream Stream, line string, observers []Observer) (err error) {
	if !utf8.ValidString(line) {
		return &DrainError{Stream: stream, Err: ErrInvalidText}
	}
	defer func() {
		if v := recover(); v != nil {
			err = &JoinError{Worker: string(stream), Value: v, Stack: debug.Stack()}
		}
	}()
	for _, o := range observers {
		o.OnLine(ctx, line)
	}
	return nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
