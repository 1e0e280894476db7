package parallel_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/procrun/internal/parallel"
	"github.com/stretchr/testify/require"
)

func sleep(ctx context.Context, d time.Duration) (int, error) {
	select {
	case <-time.After(d):
		return int(d), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestMap(t *testing.T) {
	t.Parallel()

	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}
	expected := []int{
		int(1 * time.Second),
		int(2 * time.Second),
		int(5 * time.Second),
		int(10 * time.Second),
	}

	type given struct {
		limit   int
		timeout time.Duration
	}

	var testCases = []struct {
		scenario string
		given    given
		then     time.Duration
		complete bool
	}{
		{"limit 1", given{1, 0}, 18 * time.Second, true},
		{"limit 2", given{2, 0}, 12 * time.Second, true},
		{"limit 10", given{10, 0}, 10 * time.Second, true},
		{"no limit", given{0, 0}, 10 * time.Second, true},
		{"limit 1, cancel 1.5s", given{1, 1500 * time.Millisecond}, 1500 * time.Millisecond, false},
		{"limit 10, cancel 1.5s", given{10, 1500 * time.Millisecond}, 1500 * time.Millisecond, false},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				ctx := t.Context()
				if tt.given.timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, tt.given.timeout)
					defer cancel()
				}

				start := time.Now()
				var got []parallel.Result[int]
				for r := range parallel.NewMap(ctx, tt.given.limit, sleep).Iter(slices.Values(input)) {
					got = append(got, r)
				}
				require.Equal(t, tt.then, time.Since(start))

				if !tt.complete {
					ok := 0
					for _, r := range got {
						if r.Err == nil {
							ok++
							continue
						}
						require.ErrorIs(t, r.Err, context.DeadlineExceeded)
					}
					require.Less(t, ok, len(input))
					return
				}
				require.Len(t, got, len(input))
				slices.SortFunc(got, func(a, b parallel.Result[int]) int { return a.Index - b.Index })
				for i, r := range got {
					require.Equal(t, i, r.Index)
					require.NoError(t, r.Err)
					require.Equal(t, expected[i], r.Value)
				}
			})
		})
	}
}

func TestMapCancelKeepsStarted(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 1500*time.Millisecond)
		defer cancel()

		// work which ignores the context, like a child process
		work := func(_ context.Context, d time.Duration) (time.Duration, error) {
			time.Sleep(d)
			return d, nil
		}

		start := time.Now()
		var got []parallel.Result[time.Duration]
		input := []time.Duration{time.Second, time.Second, time.Second}
		for r := range parallel.NewMap(ctx, 1, work).Iter(slices.Values(input)) {
			got = append(got, r)
		}
		require.Equal(t, 2*time.Second, time.Since(start))

		require.Len(t, got, 2)
		for i, r := range got {
			require.Equal(t, i, r.Index)
			require.NoError(t, r.Err)
			require.Equal(t, time.Second, r.Value)
		}
	})
}

func TestMapErrorsAndBreak(t *testing.T) {
	t.Parallel()
	errOdd := errors.New("odd")
	f := func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n * n, nil
	}

	var errs, oks int
	for r := range parallel.NewMap(t.Context(), 3, f).Iter(slices.Values([]int{0, 1, 2, 3, 4})) {
		if r.Err != nil {
			require.ErrorIs(t, r.Err, errOdd)
			errs++
			continue
		}
		require.Equal(t, r.Index*r.Index, r.Value)
		oks++
	}
	require.Equal(t, 2, errs)
	require.Equal(t, 3, oks)

	seen := 0
	for range parallel.NewMap(t.Context(), 2, f).Iter(slices.Values([]int{0, 2, 4, 6, 8, 10})) {
		seen++
		break
	}
	require.Equal(t, 1, seen)
}
