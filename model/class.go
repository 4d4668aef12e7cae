package model

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/events"
)

// Class is a record type. It owns the class level events and an ordered
// identity map of the synchronized records of the type.
type Class struct {
	Name string

	attributes []string
	dynamic    bool

	emitter *events.Emitter

	recordsLock sync.RWMutex
	records     []Record
	index       map[string]Record
}

func newClass(name string, attributes []string, dynamic bool) *Class {
	return &Class{
		Name:       name,
		attributes: attributes,
		dynamic:    dynamic,
		emitter:    events.NewEmitter(name),
		index:      make(map[string]Record),
	}
}

// Attributes returns the declared attributes.
func (c *Class) Attributes() []string {
	return slices.Clone(c.attributes)
}

// Dynamic returns whether the class accepts any non-reserved attribute.
func (c *Class) Dynamic() bool {
	return c.dynamic
}

// Declares returns whether name is an attribute of the class.
func (c *Class) Declares(name string) bool {
	if document.IsReserved(name) {
		return false
	}
	return c.dynamic || slices.Contains(c.attributes, name)
}

// New returns a new detached record of the class.
func (c *Class) New() *Base {
	return NewBase(c)
}

// NewFrom returns a new detached record loaded from flat.
func (c *Class) NewFrom(flat *attr.Map) *Base {
	b := NewBase(c)
	b.Load(flat)
	return b
}

// On registers a hook for a class event.
func (c *Class) On(event, description string, fn events.HookFunc) *events.Hook {
	return c.emitter.On(event, description, fn)
}

// Emit triggers a class event.
func (c *Class) Emit(event string, data interface{}) {
	c.emitter.Emit(event, data)
}

// All returns a snapshot of the known records in insertion order.
func (c *Class) All() []Record {
	c.recordsLock.RLock()
	defer c.recordsLock.RUnlock()

	return slices.Clone(c.records)
}

// Len returns the amount of known records.
func (c *Class) Len() int {
	c.recordsLock.RLock()
	defer c.recordsLock.RUnlock()

	return len(c.records)
}

// Lookup returns the known record with the given id.
func (c *Class) Lookup(id string) (Record, bool) {
	c.recordsLock.RLock()
	defer c.recordsLock.RUnlock()

	r, ok := c.index[id]
	return r, ok
}

// Add adds r to the known records under its current id. A different record
// with the same id is replaced in place. If r was known under another id,
// the old entry is dropped and r keeps its position. Records without id are
// ignored.
func (c *Class) Add(r Record) {
	id := r.ID()
	if id == "" {
		return
	}

	c.recordsLock.Lock()
	defer c.recordsLock.Unlock()

	for knownID, known := range c.index {
		if known == r && knownID != id {
			delete(c.index, knownID)
		}
	}

	pos := slices.Index(c.records, r)
	existing, ok := c.index[id]
	switch {
	case ok && existing != r:
		i := slices.Index(c.records, existing)
		switch {
		case i < 0 && pos < 0:
			c.records = append(c.records, r)
		case i < 0:
		case pos < 0:
			c.records[i] = r
		default:
			c.records = slices.Delete(c.records, i, i+1)
		}
	case pos < 0:
		c.records = append(c.records, r)
	}
	c.index[id] = r
}

// Remove removes r from the known records.
func (c *Class) Remove(r Record) {
	c.recordsLock.Lock()
	defer c.recordsLock.Unlock()

	i := slices.Index(c.records, r)
	if i < 0 {
		return
	}
	c.records = slices.Delete(c.records, i, i+1)
	for id, known := range c.index {
		if known == r {
			delete(c.index, id)
		}
	}
}

// Reset replaces the known records.
func (c *Class) Reset(records []Record) {
	c.recordsLock.Lock()
	defer c.recordsLock.Unlock()

	c.records = make([]Record, 0, len(records))
	c.index = make(map[string]Record, len(records))
	for _, r := range records {
		id := r.ID()
		if _, ok := c.index[id]; ok || id == "" {
			continue
		}
		c.records = append(c.records, r)
		c.index[id] = r
	}
}
