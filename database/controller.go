package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"
	"golang.org/x/sync/singleflight"

	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/database/storage"
	"github.com/safing/portsync/formats/dsd"
	"github.com/safing/portsync/log"
)

const docKeyPrefix = "doc:"

// Options configure a Controller.
type Options struct {
	// Format is the serialization format of document bodies.
	Format dsd.SerializationFormat
	// Compress enables GZIP compression of document bodies.
	Compress bool
	// CacheSize is the amount of documents kept in the read cache. 0 disables the cache.
	CacheSize int
}

// Result is the outcome of a successful write.
type Result struct {
	ID  string
	Rev string
}

// A Controller is a revision tracked document store on top of a storage.
// Writes are serialized per controller, reads are concurrent.
type Controller struct {
	name        string
	storageType string
	storage     storage.Interface
	opts        Options

	writeLock sync.Mutex

	cache      gcache.Cache
	cacheGroup singleflight.Group

	subscriptions     []*Subscription
	subscriptionsLock sync.RWMutex
	seq               uint64

	shuttingDown *abool.AtomicBool
}

// newController creates a new controller for a storage.
func newController(name, storageType string, storageInt storage.Interface, opts Options) *Controller {
	format, ok := opts.Format.ValidateSerializationFormat()
	if !ok {
		log.Warningf("database: unsupported format %d for %s, using %s", opts.Format, name, dsd.DefaultSerializationFormat)
		format = dsd.DefaultSerializationFormat
	}
	opts.Format = format

	c := &Controller{
		name:         name,
		storageType:  storageType,
		storage:      storageInt,
		opts:         opts,
		shuttingDown: abool.New(),
	}
	if opts.CacheSize > 0 {
		c.cache = gcache.New(opts.CacheSize).LRU().Build()
	}
	return c
}

// Name returns the database name.
func (c *Controller) Name() string {
	return c.name
}

// StorageType returns the type of the underlying storage.
func (c *Controller) StorageType() string {
	return c.storageType
}

// ReadOnly returns whether the storage is read only.
func (c *Controller) ReadOnly() bool {
	return c.storage.ReadOnly()
}

// Get returns the live document with the given id, including _id and _rev.
func (c *Controller) Get(id string) (*attr.Map, error) {
	if c.shuttingDown.IsSet() {
		return nil, ErrShuttingDown
	}
	if id == "" {
		return nil, ErrNotFound
	}

	e, err := c.getEntry(id)
	if err != nil {
		return nil, err
	}
	if e.meta.Deleted {
		return nil, ErrNotFound
	}
	return e.document(), nil
}

// Put writes the document. The document must carry an _id. Its _rev must
// match the current revision of a live document, and be empty for new ones.
func (c *Controller) Put(doc *attr.Map) (Result, error) {
	id := metaString(doc, document.KeyID)
	if id == "" {
		return Result{}, ErrMissingID
	}
	return c.write(id, metaString(doc, document.KeyRev), doc)
}

// Post writes the document with a freshly assigned id, unless it already carries one.
func (c *Controller) Post(doc *attr.Map) (Result, error) {
	id := metaString(doc, document.KeyID)
	if id == "" {
		id = newDocumentID()
	}
	return c.write(id, metaString(doc, document.KeyRev), doc)
}

// Remove deletes the document with the given id. rev must match the current revision.
func (c *Controller) Remove(id, rev string) (Result, error) {
	if id == "" {
		return Result{}, ErrNotFound
	}
	return c.write(id, rev, nil)
}

// write puts doc, or a tombstone if doc is nil.
func (c *Controller) write(id, rev string, doc *attr.Map) (Result, error) {
	if c.shuttingDown.IsSet() {
		return Result{}, ErrShuttingDown
	}
	if c.ReadOnly() {
		return Result{}, ErrReadOnly
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	// Check the revision against the current state.
	current, err := c.getEntryLocked(id)
	switch {
	case errors.Is(err, ErrNotFound):
		current = nil
	case err != nil:
		return Result{}, err
	}

	var baseRev string
	switch {
	case current != nil && !current.meta.Deleted:
		if rev != current.meta.Rev {
			return Result{}, ErrConflict
		}
		baseRev = current.meta.Rev
	case doc == nil:
		// Nothing to remove.
		return Result{}, ErrNotFound
	case current != nil:
		// Recreating a deleted document.
		if rev != "" && rev != current.meta.Rev {
			return Result{}, ErrConflict
		}
		baseRev = current.meta.Rev
	default:
		if rev != "" {
			return Result{}, ErrConflict
		}
	}

	// Build the new entry.
	e := &entry{
		meta: entryMeta{
			ID:       id,
			Rev:      nextRevision(baseRev),
			Deleted:  doc == nil,
			Modified: time.Now().Unix(),
		},
		body: attr.NewMap(),
	}
	doc.Range(func(key string, v attr.Value) bool {
		if key != document.KeyID && key != document.KeyRev {
			e.body.Set(key, v.Clone())
		}
		return true
	})

	data, err := encodeEntry(e, c.opts.Format, c.opts.Compress)
	if err != nil {
		return Result{}, err
	}
	if err := c.storage.Put(docKey(id), data); err != nil {
		c.uncache(id)
		return Result{}, fmt.Errorf("failed to write %s to storage: %w", id, err)
	}
	if c.cache != nil {
		_ = c.cache.Set(id, e)
	}

	c.notify(&Change{
		ID:      id,
		Rev:     e.meta.Rev,
		Deleted: e.meta.Deleted,
		Seq:     atomic.AddUint64(&c.seq, 1),
	})

	return Result{ID: id, Rev: e.meta.Rev}, nil
}

// AllDocuments returns all live documents ordered by id.
func (c *Controller) AllDocuments(ctx context.Context) ([]*attr.Map, error) {
	if c.shuttingDown.IsSet() {
		return nil, ErrShuttingDown
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it, err := c.storage.Query(docKeyPrefix)
	if err != nil {
		return nil, err
	}
	defer it.Cancel()

	docs := []*attr.Map{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case item, ok := <-it.Next:
			if !ok {
				if err := it.Err(); err != nil {
					return nil, err
				}
				return docs, nil
			}

			e, err := decodeEntry(item.Data, true)
			if err != nil {
				log.Warningf("database: skipping %s in %s: %s", item.Key, c.name, err)
				continue
			}
			if !e.meta.Deleted {
				docs = append(docs, e.document())
			}
		}
	}
}

// Shutdown cancels all subscriptions and shuts down the storage.
func (c *Controller) Shutdown() error {
	if !c.shuttingDown.SetToIf(false, true) {
		return nil
	}

	var result *multierror.Error

	c.subscriptionsLock.Lock()
	for _, sub := range c.subscriptions {
		sub.close()
	}
	c.subscriptions = nil
	c.subscriptionsLock.Unlock()

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.cache != nil {
		c.cache.Purge()
	}
	if err := c.storage.Shutdown(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to shut down storage of %s: %w", c.name, err))
	}

	removeController(c)
	return result.ErrorOrNil()
}

func (c *Controller) getEntry(id string) (*entry, error) {
	if c.cache != nil {
		if v, err := c.cache.Get(id); err == nil {
			return v.(*entry), nil
		}
	}

	// Collapse concurrent misses. Misses are filled under the write lock, so
	// that a fill never overwrites a newer write.
	v, err, _ := c.cacheGroup.Do(id, func() (interface{}, error) {
		c.writeLock.Lock()
		defer c.writeLock.Unlock()

		return c.getEntryLocked(id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// getEntryLocked must be called with the write lock held.
func (c *Controller) getEntryLocked(id string) (*entry, error) {
	if c.cache != nil {
		if v, err := c.cache.Get(id); err == nil {
			return v.(*entry), nil
		}
	}

	data, err := c.storage.Get(docKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e, err := decodeEntry(data, true)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.Set(id, e)
	}
	return e, nil
}

func (c *Controller) uncache(id string) {
	if c.cache != nil {
		c.cache.Remove(id)
	}
}

func docKey(id string) string {
	return docKeyPrefix + id
}

func idFromKey(key string) string {
	return strings.TrimPrefix(key, docKeyPrefix)
}

func metaString(doc *attr.Map, key string) string {
	v, ok := doc.Get(key)
	if !ok || v.IsNull() {
		return ""
	}
	return v.String()
}
