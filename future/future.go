// Package future provides a single assignment result of an asynchronous
// operation.
package future

import (
	"context"
	"errors"
	"fmt"

	"github.com/tevino/abool"
)

// ErrPanic is wrapped by errors of operations that panicked.
var ErrPanic = errors.New("operation panicked")

// Future is the eventual result of an operation.
type Future[T any] struct {
	done     chan struct{}
	resolved *abool.AtomicBool

	value T
	err   error
}

// New returns an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{
		done:     make(chan struct{}),
		resolved: abool.New(),
	}
}

// Resolved returns a future that is already resolved.
func Resolved[T any](value T, err error) *Future[T] {
	f := New[T]()
	f.Resolve(value, err)
	return f
}

// Go runs fn in a new goroutine and resolves the returned future with its
// result. A panic in fn resolves the future with an error wrapping ErrPanic.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		var (
			value T
			err   error
		)
		defer func() {
			if x := recover(); x != nil {
				var zero T
				f.Resolve(zero, fmt.Errorf("%w: %v", ErrPanic, x))
				return
			}
			f.Resolve(value, err)
		}()

		value, err = fn()
	}()
	return f
}

// Then returns a future resolved with the result of fn applied to the value
// of f. If f fails, fn is not called and the error is passed on.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		value, err := f.Wait()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(value)
	})
}

// Resolve sets the result. Only the first call has an effect; it reports
// whether the future was resolved by this call.
func (f *Future[T]) Resolve(value T, err error) bool {
	if !f.resolved.SetToIf(false, true) {
		return false
	}
	f.value = value
	f.err = err
	close(f.done)
	return true
}

// Done returns a channel that is closed when the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsResolved returns whether the future is resolved.
func (f *Future[T]) IsResolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future is resolved and returns the result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// WaitContext is like Wait, but gives up when ctx is done.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err waits for the future and returns its error.
func (f *Future[T]) Err() error {
	_, err := f.Wait()
	return err
}
