package document

import (
	"github.com/safing/portsync/database/attr"
)

// Reserved keys.
const (
	KeyID   = "_id"
	KeyRev  = "_rev"
	KeyType = "rbtype"

	// KeyAlias is the application facing copy of the store identifier.
	KeyAlias = "id"
)

// ReservedKeys lists the keys that hold store metadata.
var ReservedKeys = []string{KeyID, KeyRev, KeyType}

// IsReserved returns whether key is a metadata key or the identifier alias.
func IsReserved(key string) bool {
	switch key {
	case KeyID, KeyRev, KeyType, KeyAlias:
		return true
	default:
		return false
	}
}

// Meta is the store metadata of a synchronized record.
type Meta struct {
	ID   string
	Rev  string
	Type string
}

// Empty returns whether no metadata is set.
func (m *Meta) Empty() bool {
	return m == nil || (m.ID == "" && m.Rev == "" && m.Type == "")
}

// Copy returns a copy of the metadata.
func (m *Meta) Copy() *Meta {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Split partitions a flat document into application attributes and metadata.
// The identifier alias is only used when the document carries no _id.
func Split(doc *attr.Map) (attributes *attr.Map, meta *Meta) {
	attributes = attr.NewMap()
	meta = &Meta{}

	var alias string
	doc.Range(func(key string, v attr.Value) bool {
		switch key {
		case KeyID:
			meta.ID = metaValue(v)
		case KeyRev:
			meta.Rev = metaValue(v)
		case KeyType:
			meta.Type = metaValue(v)
		case KeyAlias:
			alias = metaValue(v)
		default:
			attributes.Set(key, v)
		}
		return true
	})

	if meta.ID == "" {
		meta.ID = alias
	}
	return attributes, meta
}

// metaValue returns v as metadata text. Null is empty.
func metaValue(v attr.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// Merge returns the union of attributes and metadata plus the identifier alias.
// Reserved keys in attributes are ignored.
func Merge(attributes *attr.Map, meta *Meta) *attr.Map {
	flat := Compose(attributes, meta)
	if meta != nil && meta.ID != "" {
		flat.Set(KeyAlias, attr.StringValue(meta.ID))
	}
	return flat
}

// Compose returns the document to write to the store: attributes plus the
// set metadata keys, without the identifier alias.
func Compose(attributes *attr.Map, meta *Meta) *attr.Map {
	doc := attr.NewMap()
	attributes.Range(func(key string, v attr.Value) bool {
		if !IsReserved(key) {
			doc.Set(key, v)
		}
		return true
	})

	if meta == nil {
		return doc
	}
	if meta.ID != "" {
		doc.Set(KeyID, attr.StringValue(meta.ID))
	}
	if meta.Rev != "" {
		doc.Set(KeyRev, attr.StringValue(meta.Rev))
	}
	if meta.Type != "" {
		doc.Set(KeyType, attr.StringValue(meta.Type))
	}
	return doc
}
