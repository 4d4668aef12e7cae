package database

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/safing/portsync/container"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/formats/dsd"
)

const envelopeVersion = 1

// entryMeta is the store side metadata of a document.
type entryMeta struct {
	ID       string `msgpack:"id"`
	Rev      string `msgpack:"rev"`
	Deleted  bool   `msgpack:"deleted,omitempty"`
	Modified int64  `msgpack:"modified"`
}

// entry is a decoded storage value. Entries are shared via the cache and
// must not be modified.
type entry struct {
	meta entryMeta
	body *attr.Map
}

// document returns a new flat document with _id and _rev set.
func (e *entry) document() *attr.Map {
	doc := attr.NewMap()
	doc.Set(document.KeyID, attr.StringValue(e.meta.ID))
	doc.Set(document.KeyRev, attr.StringValue(e.meta.Rev))
	e.body.Range(func(key string, v attr.Value) bool {
		doc.Set(key, v.Clone())
		return true
	})
	return doc
}

// encodeEntry serializes an entry as:
// version | block(msgpack meta) | dsd body (absent for tombstones).
func encodeEntry(e *entry, format dsd.SerializationFormat, compress bool) ([]byte, error) {
	metaData, err := msgpack.Marshal(&e.meta)
	if err != nil {
		return nil, fmt.Errorf("failed to pack meta: %w", err)
	}

	c := container.New()
	c.AppendNumber(envelopeVersion)
	c.AppendAsBlock(metaData)

	if !e.meta.Deleted {
		var body []byte
		if compress {
			body, err = dsd.DumpAndCompress(e.body, format, dsd.GZIP)
		} else {
			body, err = dsd.Dump(e.body, format)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to serialize body: %w", err)
		}
		c.Append(body)
	}

	return c.CompileData(), nil
}

// decodeEntry parses a storage value. The body is only parsed if withBody is set.
func decodeEntry(data []byte, withBody bool) (*entry, error) {
	c := container.New(data)

	version, err := c.GetNextN8()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
	}
	if version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, version)
	}

	metaData, err := c.GetNextBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
	}
	e := &entry{
		body: attr.NewMap(),
	}
	if err := msgpack.Unmarshal(metaData, &e.meta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
	}

	if withBody && !e.meta.Deleted {
		if _, err := dsd.Load(c.GetAll(), e.body); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
		}
	}

	return e, nil
}
