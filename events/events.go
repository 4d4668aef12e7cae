// Package events provides named event hooks.
package events

import (
	"fmt"
	"sync"

	"github.com/safing/portsync/log"
)

// AnyEvent registers a hook for all events of an emitter.
const AnyEvent = "*"

// HookFunc is called with the name of the triggered event and its data.
type HookFunc func(event string, data interface{}) error

type eventHook struct {
	id          uint64
	event       string
	description string
	hookFn      HookFunc
}

// Hook is a registered hook.
type Hook struct {
	emitter *Emitter
	id      uint64
}

// Emitter holds hooks by event name. Hooks are executed synchronously, in
// registration order, by the goroutine that triggers the event.
type Emitter struct {
	name string

	eventHooks     []*eventHook
	eventHooksLock sync.RWMutex
	nextID         uint64
}

// NewEmitter returns a new emitter. The name is only used for logging.
func NewEmitter(name string) *Emitter {
	return &Emitter{
		name: name,
	}
}

// Name returns the name of the emitter.
func (e *Emitter) Name() string {
	return e.name
}

// On registers fn for event. Use AnyEvent to receive all events.
func (e *Emitter) On(event, description string, fn HookFunc) *Hook {
	e.eventHooksLock.Lock()
	defer e.eventHooksLock.Unlock()

	e.nextID++
	e.eventHooks = append(e.eventHooks, &eventHook{
		id:          e.nextID,
		event:       event,
		description: description,
		hookFn:      fn,
	})
	return &Hook{
		emitter: e,
		id:      e.nextID,
	}
}

// Cancel removes the hook.
func (h *Hook) Cancel() {
	e := h.emitter

	e.eventHooksLock.Lock()
	defer e.eventHooksLock.Unlock()

	for i, hook := range e.eventHooks {
		if hook.id == h.id {
			e.eventHooks = append(e.eventHooks[:i:i], e.eventHooks[i+1:]...)
			return
		}
	}
}

// Emit executes all hooks registered for event. Failing or panicking hooks
// are logged and do not affect other hooks.
func (e *Emitter) Emit(event string, data interface{}) {
	e.eventHooksLock.RLock()
	hooks := make([]*eventHook, 0, len(e.eventHooks))
	for _, hook := range e.eventHooks {
		if hook.event == event || hook.event == AnyEvent {
			hooks = append(hooks, hook)
		}
	}
	e.eventHooksLock.RUnlock()

	for _, hook := range hooks {
		if err := e.runEventHook(hook, event, data); err != nil {
			log.Warningf("events: failed to execute event hook %s/%s -> %s: %s", e.name, event, hook.description, err)
		}
	}
}

// Count returns the number of hooks that receive event.
func (e *Emitter) Count(event string) int {
	e.eventHooksLock.RLock()
	defer e.eventHooksLock.RUnlock()

	var n int
	for _, hook := range e.eventHooks {
		if hook.event == event || hook.event == AnyEvent {
			n++
		}
	}
	return n
}

func (e *Emitter) runEventHook(hook *eventHook, event string, data interface{}) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("panic: %v", x)
		}
	}()

	return hook.hookFn(event, data)
}
