package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff is the delay policy between attempts.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// retry calls op until it succeeds, up to retries extra times. Only an
// unexpected exit code is retried, everything else fails at once.
func retry(ctx context.Context, retries uint64, op func() (*run.Output, error)) (*run.Output, error) {
	if retries == 0 {
		return op()
	}

	var out *run.Output
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), retries), ctx)
	err := backoff.Retry(func() error {
		attempt++
		var err error
		out, err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, run.ErrUnexpectedExitCode) {
			return backoff.Permanent(err)
		}
		slog.WarnContext(ctx, "retrying", "attempt", attempt, "error", err)
		return err
	}, b)
	if err != nil {
		return nil, err
	}
	return out, nil
}
