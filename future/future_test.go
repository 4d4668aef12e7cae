package future

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture(t *testing.T) {
	t.Parallel()

	f := New[int]()
	assert.False(t, f.IsResolved())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.WaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.True(t, f.Resolve(1, nil))
	assert.False(t, f.Resolve(2, nil))

	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.True(t, f.IsResolved())
	<-f.Done()
}

func TestGoAndThen(t *testing.T) {
	t.Parallel()

	f := Then(Go(func() (int, error) {
		return 21, nil
	}), func(n int) (string, error) {
		return strconv.Itoa(n * 2), nil
	})
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	errTest := errors.New("test")
	called := false
	failed := Then(Resolved(0, errTest), func(n int) (int, error) {
		called = true
		return n, nil
	})
	assert.ErrorIs(t, failed.Err(), errTest)
	assert.False(t, called)

	panicked := Go(func() (int, error) {
		panic("boom")
	})
	assert.ErrorIs(t, panicked.Err(), ErrPanic)
}
