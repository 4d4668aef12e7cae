// Package adapter synchronizes application records with documents of a
// revision tracked document store.
//
// All operations run asynchronously and return a future. Failures never
// reach the caller as a panic: they are emitted as model.EventError on the
// record or its class, and the callback is skipped. The adapter must be set
// up with Configure before use.
package adapter

import (
	"context"

	"github.com/safing/portsync/database"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/future"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/model"
)

type (
	// Callback is called with the record after a successful operation.
	Callback func(r model.Record)
	// CollectionCallback is called with the records after a successful fetch.
	CollectionCallback func(records []model.Record)
)

// Adapter synchronizes the records of the classes of a registry.
type Adapter struct {
	registry *model.Registry
}

// New returns an adapter for the classes of registry.
func New(registry *model.Registry) *Adapter {
	return &Adapter{
		registry: registry,
	}
}

// Registry returns the registry of the adapter.
func (a *Adapter) Registry() *model.Registry {
	return a.registry
}

func (a *Adapter) class(recordType string) (*model.Class, error) {
	class, err := a.registry.Get(recordType)
	if err != nil {
		log.Warningf("adapter: %s", err)
	}
	return class, err
}

// Find gets the document with the given id and loads it into the known
// record with this id, or into a new record.
func (a *Adapter) Find(recordType, id string, cb Callback) *future.Future[model.Record] {
	mustBeConfigured()
	class, err := a.class(recordType)
	if err != nil {
		return future.Resolved[model.Record](nil, err)
	}

	return perform(operation[model.Record]{
		name:  "find",
		id:    id,
		class: class,
		run: func(db *database.Controller) (model.Record, error) {
			return find(db, class, id, nil)
		},
		callback: cb,
	})
}

// Load gets the document with the given id and loads it into r. Errors
// other than type mismatches are emitted on r.
func (a *Adapter) Load(r model.Record, id string, cb Callback) *future.Future[model.Record] {
	return perform(operation[model.Record]{
		name:   "find",
		id:     id,
		class:  r.Class(),
		record: r,
		run: func(db *database.Controller) (model.Record, error) {
			return find(db, r.Class(), id, r)
		},
		callback: cb,
	})
}

func find(db *database.Controller, class *model.Class, id string, into model.Record) (model.Record, error) {
	log.Debugf("adapter: get %s from %s", id, db.Name())
	doc, err := db.Get(id)
	if err != nil {
		return nil, err
	}

	attributes, meta := document.Split(doc)
	if meta.Type != class.Name {
		return nil, &Error{
			Kind:     KindTypeMismatch,
			ID:       id,
			Expected: class.Name,
			Received: meta.Type,
		}
	}

	r := into
	if r == nil {
		if known, ok := class.Lookup(id); ok {
			r = known
		} else {
			r = class.New()
		}
	}
	hydrate(r, attributes, meta)
	class.Add(r)
	return r, nil
}

// hydrate loads attributes and store metadata into r.
func hydrate(r model.Record, attributes *attr.Map, meta *document.Meta) {
	locked(r, func() {
		r.Load(document.Merge(attributes, meta))
	})
}

// snapshot returns the plain object and the metadata of r as one consistent
// view.
func snapshot(r model.Record) (*attr.Map, *document.Meta) {
	r.Lock()
	defer r.Unlock()

	return r.AsPlainObject(), r.Meta()
}

// setMeta sets the store metadata of r.
func setMeta(r model.Record, meta *document.Meta) {
	locked(r, func() {
		r.SetMeta(meta)
	})
}

func locked(r model.Record, fn func()) {
	r.Lock()
	defer r.Unlock()

	fn()
}

// Create writes r as a new document. A record with an id is put under that
// id and conflicts with an existing document, otherwise the store assigns
// an id.
func (a *Adapter) Create(r model.Record, cb Callback) *future.Future[model.Record] {
	class := r.Class()

	return perform(operation[model.Record]{
		name:   "create",
		id:     r.ID(),
		class:  class,
		record: r,
		run: func(db *database.Controller) (model.Record, error) {
			plain, _ := snapshot(r)
			attributes, meta := document.Split(plain)
			meta.Rev = ""
			meta.Type = class.Name
			doc := document.Compose(attributes, meta)

			var (
				result database.Result
				err    error
			)
			if meta.ID != "" {
				log.Debugf("adapter: put %s to %s", meta.ID, db.Name())
				result, err = db.Put(doc)
			} else {
				log.Debugf("adapter: post %s to %s", class.Name, db.Name())
				result, err = db.Post(doc)
			}
			if err != nil {
				return nil, err
			}

			setMeta(r, &document.Meta{
				ID:   result.ID,
				Rev:  result.Rev,
				Type: class.Name,
			})
			class.Add(r)
			return r, nil
		},
		notify: func(r model.Record) {
			emit(r, "record", model.EventCreate, r)
			emit(r, "record", model.EventUpdate, r)
			emit(class, "class", model.EventChange, class.All())
		},
		callback: cb,
	})
}

// Update writes the attributes of r with its current revision. Only the
// revision of r changes on success. A failed update leaves the attributes
// of r as they are.
func (a *Adapter) Update(r model.Record, cb Callback) *future.Future[model.Record] {
	class := r.Class()

	return perform(operation[model.Record]{
		name:   "update",
		id:     r.ID(),
		class:  class,
		record: r,
		run: func(db *database.Controller) (model.Record, error) {
			plain, meta := snapshot(r)
			if meta == nil {
				return nil, ErrNotPersisted
			}
			if meta.Type == "" {
				meta.Type = class.Name
			}

			attributes, _ := document.Split(plain)
			log.Debugf("adapter: put %s@%s to %s", meta.ID, meta.Rev, db.Name())
			result, err := db.Put(document.Compose(attributes, meta))
			if err != nil {
				return nil, err
			}

			meta.Rev = result.Rev
			setMeta(r, meta)
			class.Add(r)
			return r, nil
		},
		notify: func(r model.Record) {
			emit(r, "record", model.EventUpdate, r)
			emit(class, "class", model.EventChange, class.All())
		},
		callback: cb,
	})
}

// Save creates r if it was never synchronized, and updates it otherwise.
func (a *Adapter) Save(r model.Record, cb Callback) *future.Future[model.Record] {
	if r.IsNew() {
		return a.Create(r, cb)
	}
	return a.Update(r, cb)
}

// Delete removes the document of r and detaches r from the store. The record
// itself stays usable and may be created again.
func (a *Adapter) Delete(r model.Record, cb Callback) *future.Future[model.Record] {
	class := r.Class()

	return perform(operation[model.Record]{
		name:   "delete",
		id:     r.ID(),
		class:  class,
		record: r,
		run: func(db *database.Controller) (model.Record, error) {
			_, meta := snapshot(r)
			if meta == nil {
				return nil, ErrNotPersisted
			}

			log.Debugf("adapter: remove %s@%s from %s", meta.ID, meta.Rev, db.Name())
			if _, err := db.Remove(meta.ID, meta.Rev); err != nil {
				return nil, err
			}

			setMeta(r, nil)
			class.Remove(r)
			return r, nil
		},
		notify: func(r model.Record) {
			emit(r, "record", model.EventDestroy, r)
			emit(class, "class", model.EventChange, class.All())
		},
		callback: cb,
	})
}

// Fetch loads all documents of the given type and replaces the known records
// of the class with them. EventRefresh is emitted even if there are none.
func (a *Adapter) Fetch(recordType string, cb CollectionCallback) *future.Future[[]model.Record] {
	mustBeConfigured()
	class, err := a.class(recordType)
	if err != nil {
		return future.Resolved[[]model.Record](nil, err)
	}

	return perform(operation[[]model.Record]{
		name:  "fetch",
		class: class,
		run: func(db *database.Controller) ([]model.Record, error) {
			log.Debugf("adapter: all documents of %s", db.Name())
			docs, err := db.AllDocuments(context.Background())
			if err != nil {
				return nil, err
			}

			records := make([]model.Record, 0, len(docs))
			for _, doc := range docs {
				attributes, meta := document.Split(doc)
				if meta.Type != class.Name {
					continue
				}

				r, ok := class.Lookup(meta.ID)
				if !ok {
					r = class.New()
				}
				hydrate(r, attributes, meta)
				records = append(records, r)
			}

			class.Reset(records)
			return records, nil
		},
		notify: func(records []model.Record) {
			emit(class, "class", model.EventRefresh, records)
		},
		callback: cb,
	})
}
