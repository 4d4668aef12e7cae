package model

import (
	"fmt"
	"sync"

	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/events"
	"github.com/safing/portsync/log"
)

var _ Record = &Base{}

// Base provides a quick way to comply with the Record interface.
type Base struct {
	sync.Mutex

	class *Class

	dataLock   sync.RWMutex
	id         string
	attributes *attr.Map
	meta       *document.Meta

	emitter *events.Emitter
}

// NewBase returns a new detached record of class.
func NewBase(class *Class) *Base {
	return &Base{
		class:      class,
		attributes: attr.NewMap(),
		emitter:    events.NewEmitter(class.Name),
	}
}

// Class returns the class of the record.
func (b *Base) Class() *Class {
	return b.class
}

// ID returns the identifier.
func (b *Base) ID() string {
	b.dataLock.RLock()
	defer b.dataLock.RUnlock()

	return b.id
}

// SetID sets the identifier.
func (b *Base) SetID(id string) {
	b.dataLock.Lock()
	defer b.dataLock.Unlock()

	b.id = id
}

// IsNew returns whether the record has no metadata.
func (b *Base) IsNew() bool {
	b.dataLock.RLock()
	defer b.dataLock.RUnlock()

	return b.meta == nil
}

// Get returns the value of the attribute.
func (b *Base) Get(name string) (attr.Value, bool) {
	b.dataLock.RLock()
	defer b.dataLock.RUnlock()

	return b.attributes.Get(name)
}

// Set sets the attribute, which must be declared by the class.
func (b *Base) Set(name string, v attr.Value) error {
	if document.IsReserved(name) {
		return fmt.Errorf("%w: %s", ErrReservedAttribute, name)
	}
	if !b.class.Declares(name) {
		return fmt.Errorf("%w: %s.%s", ErrUndeclaredAttribute, b.class.Name, name)
	}

	b.dataLock.Lock()
	defer b.dataLock.Unlock()

	b.attributes.Set(name, v)
	return nil
}

// Load sets the attributes, identifier and metadata found in flat.
func (b *Base) Load(flat *attr.Map) {
	attributes, meta := document.Split(flat)

	b.dataLock.Lock()
	defer b.dataLock.Unlock()

	attributes.Range(func(name string, v attr.Value) bool {
		if b.class.Declares(name) {
			b.attributes.Set(name, v.Clone())
		} else {
			log.Tracef("model: ignoring undeclared attribute %s.%s", b.class.Name, name)
		}
		return true
	})

	if meta.ID != "" {
		b.id = meta.ID
	}
	// A bare identifier is not store metadata.
	if meta.Rev != "" || meta.Type != "" {
		b.meta = meta
	}
}

// AsPlainObject returns the attributes in declaration order, followed by the
// identifier as "id".
func (b *Base) AsPlainObject() *attr.Map {
	b.dataLock.RLock()
	defer b.dataLock.RUnlock()

	plain := attr.NewMap()
	for _, name := range b.class.Attributes() {
		if v, ok := b.attributes.Get(name); ok {
			plain.Set(name, v.Clone())
		}
	}
	// Dynamic classes keep every attribute.
	b.attributes.Range(func(name string, v attr.Value) bool {
		if !plain.Has(name) {
			plain.Set(name, v.Clone())
		}
		return true
	})

	if b.id != "" {
		plain.Set(document.KeyAlias, attr.StringValue(b.id))
	}
	return plain
}

// Meta returns a copy of the metadata, or nil.
func (b *Base) Meta() *document.Meta {
	b.dataLock.RLock()
	defer b.dataLock.RUnlock()

	return b.meta.Copy()
}

// SetMeta sets the metadata. Setting nil detaches the record from the store.
func (b *Base) SetMeta(meta *document.Meta) {
	b.dataLock.Lock()
	defer b.dataLock.Unlock()

	b.meta = meta.Copy()
	if meta != nil && meta.ID != "" {
		b.id = meta.ID
	}
}

// On registers a hook for an event of this record.
func (b *Base) On(event, description string, fn events.HookFunc) *events.Hook {
	return b.emitter.On(event, description, fn)
}

// Emit triggers an event of this record.
func (b *Base) Emit(event string, data interface{}) {
	b.emitter.Emit(event, data)
}

// String returns a short description of the record.
func (b *Base) String() string {
	id := b.ID()
	if id == "" {
		id = "new"
	}
	return b.class.Name + "#" + id
}
