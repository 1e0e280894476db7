// Package bridge turns a function running on its own goroutine into a plain
// blocking call.
//
// BlockOn runs the function on a fresh goroutine locked to a dedicated OS
// thread and can be used anywhere, including from inside another bridged
// call. BlockOnLocal runs it on the calling goroutine; it is cheaper but
// refuses to nest inside another BlockOnLocal sharing the same context.
//
// Both return the function's value and error untouched. A panic is never
// swallowed: it comes back as a *PanicError.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

var ErrReentrant = errors.New("bridge: BlockOnLocal called from inside a running local operation")

// PanicError carries a panic recovered from the bridged function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bridge: operation panicked: %v", e.Value)
}

type localKey struct{}

type result[T any] struct {
	v   T
	err error
}

func BlockOn[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	// the new thread is a fresh local scope
	ctx = context.WithValue(ctx, localKey{}, nil)

	ch := make(chan result[T], 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var res result[T]
		defer func() {
			if v := recover(); v != nil {
				res = result[T]{err: &PanicError{Value: v, Stack: debug.Stack()}}
			}
			ch <- res
		}()
		res.v, res.err = fn(ctx)
	}()

	res := <-ch
	return res.v, res.err
}

func BlockOnLocal[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	if running, _ := ctx.Value(localKey{}).(bool); running {
		return v, ErrReentrant
	}
	ctx = context.WithValue(ctx, localKey{}, true)

	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}
