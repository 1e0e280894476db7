package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Result is one mapped element. Index is the position of the element in
// the input sequence, results themselves arrive in completion order.
type Result[D any] struct {
	Index int
	Value D
	Err   error
}

// Map is a parallel mapping function, which runs at most limit mapFuncs at
// a time. The input and output are represented as iterators, so the typical
// usage is.
//
//	for result := range parallel.NewMap(ctx, 4, fn).Iter(input) {}
//
// Map is context aware: a canceled context stops scheduling new elements.
// Every element which was started is yielded, even after the cancel.
type Map[E, D any] struct {
	ctx     context.Context
	limit   int
	mapFunc func(context.Context, E) (D, error)
}

// NewMap returns a Map; limit < 1 means no limit.
func NewMap[E, D any](ctx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	if limit < 1 {
		limit = -1
	}
	return &Map[E, D]{
		ctx:     ctx,
		limit:   limit,
		mapFunc: mapFunc,
	}
}

func (m *Map[E, D]) goWorkers(ctx context.Context, seq iter.Seq[E], mapped chan<- Result[D]) {
	g, gctx := errgroup.WithContext(ctx)

	// own semaphore instead of g.SetLimit, so waiting for a slot can be
	// interrupted by the context
	var slots chan struct{}
	if m.limit > 0 {
		slots = make(chan struct{}, m.limit)
	}

	go func() {
		index := 0
		for entry := range seq {
			if slots != nil {
				select {
				case slots <- struct{}{}:
				case <-gctx.Done():
				}
			}
			if gctx.Err() != nil {
				break
			}
			idx := index
			index++
			g.Go(func() error {
				d, err := m.mapFunc(gctx, entry)
				if slots != nil {
					<-slots
				}
				mapped <- Result[D]{Index: idx, Value: d, Err: err}
				return nil
			})
		}
		_ = g.Wait() // workers do not return an error
		close(mapped)
	}()
}

func (m *Map[E, D]) Iter(seq iter.Seq[E]) iter.Seq[Result[D]] {
	return func(yield func(Result[D]) bool) {
		ctx, cancel := context.WithCancel(m.ctx)
		mapped := make(chan Result[D])
		m.goWorkers(ctx, seq, mapped)
		defer func() {
			cancel()
			for range mapped { // wait for the running calls
			}
		}()

		for r := range mapped {
			if !yield(r) {
				return
			}
		}
	}
}
