package iterator

import (
	"sync"

	"github.com/tevino/abool"
)

// Item is a raw storage entry.
type Item struct {
	Key  string
	Data []byte
}

// Iterator defines the iterator structure.
type Iterator struct {
	Next chan *Item
	Done chan struct{}

	errLock    sync.Mutex
	err        error
	doneClosed *abool.AtomicBool
}

// New creates a new Iterator.
func New() *Iterator {
	return &Iterator{
		Next:       make(chan *Item, 10),
		Done:       make(chan struct{}),
		doneClosed: abool.NewBool(false),
	}
}

// Finish is called by the storage to signal the end of the query results.
// The error is stored before Next is closed, so that it is visible to a
// consumer as soon as Next is drained.
func (it *Iterator) Finish(err error) {
	it.errLock.Lock()
	it.err = err
	it.errLock.Unlock()

	close(it.Next)
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Cancel is called by the iteration consumer to cancel the running query.
func (it *Iterator) Cancel() {
	if it.doneClosed.SetToIf(false, true) {
		close(it.Done)
	}
}

// Err returns the iterator error, if exists.
func (it *Iterator) Err() error {
	it.errLock.Lock()
	defer it.errLock.Unlock()
	return it.err
}

// Send delivers item to the consumer. It returns false if the iteration was
// cancelled.
func (it *Iterator) Send(item *Item) bool {
	select {
	case it.Next <- item:
		return true
	case <-it.Done:
		return false
	}
}
