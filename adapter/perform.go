package adapter

import (
	"time"

	"github.com/safing/portsync/database"
	"github.com/safing/portsync/future"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/metrics"
	"github.com/safing/portsync/model"
)

// operation describes one adapter operation for perform.
type operation[T any] struct {
	name string
	id   string

	// class receives class events and collection errors.
	class *model.Class
	// record, if set, receives instance events and errors.
	record model.Record

	// run executes the store calls and applies the result to the records.
	run func(db *database.Controller) (T, error)
	// notify emits the success events.
	notify func(value T)
	// callback is the optional success callback of the caller.
	callback func(value T)
}

// perform runs op asynchronously. On success, events are emitted and the
// callback is called before the future resolves. On failure, the error is
// emitted as EventError instead and the callback is not called.
// perform panics if the adapter is not configured.
func perform[T any](op operation[T]) *future.Future[T] {
	mustBeConfigured()

	return future.Go(func() (T, error) {
		start := time.Now()

		value, err := execute(op)
		if err != nil {
			adapterErr := classify(op.id, err)
			metrics.Operation(op.name, adapterErr.Kind.String(), start)
			log.Debugf("adapter: %s %s/%s failed: %s", op.name, op.class.Name, op.id, adapterErr)

			// Type mismatches always concern the class.
			if op.record != nil && adapterErr.Kind != KindTypeMismatch {
				emit(op.record, "record", model.EventError, adapterErr)
			} else {
				emit(op.class, "class", model.EventError, adapterErr)
			}

			var zero T
			return zero, adapterErr
		}

		metrics.Operation(op.name, "ok", start)
		if op.notify != nil {
			op.notify(value)
		}
		if op.callback != nil {
			runCallback(op, value)
		}
		return value, nil
	})
}

// runCallback calls the success callback. A panic in the callback is logged
// and does not change the result of the operation.
func runCallback[T any](op operation[T], value T) {
	defer func() {
		if x := recover(); x != nil {
			log.Errorf("adapter: callback of %s %s/%s panicked: %v", op.name, op.class.Name, op.id, x)
		}
	}()
	op.callback(value)
}

func execute[T any](op operation[T]) (value T, err error) {
	db, err := Database()
	if err != nil {
		return value, err
	}
	return op.run(db)
}

type emitter interface {
	Emit(event string, data interface{})
}

func emit(target emitter, scope, event string, data interface{}) {
	metrics.Event(scope, event)
	target.Emit(event, data)
}
