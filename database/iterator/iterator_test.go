package iterator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterator(t *testing.T) {
	t.Parallel()

	it := New()
	go func() {
		for _, key := range []string{"a", "b", "c"} {
			if !it.Send(&Item{Key: key}) {
				break
			}
		}
		it.Finish(nil)
	}()

	var keys []string
	for item := range it.Next {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.NoError(t, it.Err())
}

func TestIteratorCancel(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test")
	it := New()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			if !it.Send(&Item{Key: "loop"}) {
				it.Finish(errTest)
				return
			}
		}
	}()

	<-it.Next
	it.Cancel()
	<-finished
	assert.ErrorIs(t, it.Err(), errTest)
}

func TestIteratorErrVisibleAfterDrain(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test")
	for i := 0; i < 10000; i++ {
		it := New()
		go it.Finish(errTest)

		for range it.Next {
		}
		if !assert.ErrorIs(t, it.Err(), errTest, "iteration %d", i) {
			return
		}
	}
}
