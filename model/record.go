package model

import (
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/events"
)

// Instance events.
const (
	EventCreate  = "create"
	EventUpdate  = "update"
	EventDestroy = "destroy"
)

// Class events.
const (
	EventChange  = "change"
	EventRefresh = "refresh"
	EventError   = "pouchdb_error"
)

// Record is an application record that can be synchronized with a document store.
type Record interface {
	// Class returns the class of the record.
	Class() *Class

	// ID returns the identifier, or an empty string.
	ID() string
	SetID(id string)

	// IsNew returns whether the record was never synchronized, ie. has no metadata.
	IsNew() bool

	Get(name string) (attr.Value, bool)
	Set(name string, v attr.Value) error

	// Load sets the attributes, identifier and metadata found in the flat
	// document. Unknown attributes are ignored.
	Load(flat *attr.Map)
	// AsPlainObject returns the attributes and, if set, the identifier as "id".
	AsPlainObject() *attr.Map

	// Meta returns a copy of the store metadata, or nil.
	Meta() *document.Meta
	SetMeta(meta *document.Meta)

	On(event, description string, fn events.HookFunc) *events.Hook
	Emit(event string, data interface{})

	// Lock and Unlock guard the adapter's multi-step reads and writes of the
	// record: its snapshot before a store call and the metadata applied
	// after it. Store calls run without the lock held.
	Lock()
	Unlock()
}
