package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Stream names one of the two drained output pipes.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Observer receives every line of a stream as soon as it is read, without
// the trailing newline. Observers of one stream are called from a single
// goroutine, in registration order.
type Observer interface {
	OnLine(ctx context.Context, line string)
}

// ObserverFunc adapts an ordinary function to an Observer.
type ObserverFunc func(ctx context.Context, line string)

func (f ObserverFunc) OnLine(ctx context.Context, line string) { f(ctx, line) }

// LogLines returns an Observer sending each line to the default slog logger
// at info level.
func LogLines(stream Stream) Observer {
	return ObserverFunc(func(ctx context.Context, line string) {
		slog.InfoContext(ctx, line, slog.String("stream", string(stream)))
	})
}

// WriteLines returns an Observer copying lines to w. Writes are serialized,
// so the same writer may be registered for both streams.
func WriteLines(w io.Writer) Observer {
	var mx sync.Mutex
	return ObserverFunc(func(ctx context.Context, line string) {
		mx.Lock()
		defer mx.Unlock()
		if _, err := fmt.Fprintln(w, line); err != nil {
			slog.DebugContext(ctx, "writing line", "error", err)
		}
	})
}
