package hashmap

import (
	"context"
	"sync"

	"github.com/armon/go-radix"

	"github.com/safing/portsync/database/iterator"
	"github.com/safing/portsync/database/storage"
)

// HashMap storage. Keys are kept in a radix tree, so queries are key ordered.
type HashMap struct {
	name   string
	db     *radix.Tree
	dbLock sync.RWMutex
}

func init() {
	_ = storage.Register("hashmap", NewHashMap)
}

// NewHashMap creates a hashmap database.
func NewHashMap(name, location string) (storage.Interface, error) {
	return &HashMap{
		name: name,
		db:   radix.New(),
	}, nil
}

// Get returns the data stored at key.
func (hm *HashMap) Get(key string) ([]byte, error) {
	hm.dbLock.RLock()
	defer hm.dbLock.RUnlock()

	v, ok := hm.db.Get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return duplicate(v.([]byte)), nil
}

// Put stores data at key.
func (hm *HashMap) Put(key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db.Insert(key, duplicate(data))
	return nil
}

// Delete deletes the entry at key.
func (hm *HashMap) Delete(key string) error {
	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db.Delete(key)
	return nil
}

// Query returns an iterator over all entries with the given key prefix.
func (hm *HashMap) Query(prefix string) (*iterator.Iterator, error) {
	queryIter := iterator.New()

	// Snapshot matching entries, so that writers are not blocked by slow consumers.
	var items []*iterator.Item
	hm.dbLock.RLock()
	hm.db.WalkPrefix(prefix, func(key string, v interface{}) bool {
		items = append(items, &iterator.Item{
			Key:  key,
			Data: duplicate(v.([]byte)),
		})
		return false
	})
	hm.dbLock.RUnlock()

	go func() {
		for _, item := range items {
			if !queryIter.Send(item) {
				break
			}
		}
		queryIter.Finish(nil)
	}()
	return queryIter, nil
}

// Len returns the amount of stored entries.
func (hm *HashMap) Len() int {
	hm.dbLock.RLock()
	defer hm.dbLock.RUnlock()

	return hm.db.Len()
}

// ReadOnly returns whether the database is read only.
func (hm *HashMap) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (hm *HashMap) Maintain(_ context.Context) error {
	return nil
}

// Shutdown shuts down the database.
func (hm *HashMap) Shutdown() error {
	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db = radix.New()
	return nil
}

func duplicate(data []byte) []byte {
	c := make([]byte, len(data))
	copy(c, data)
	return c
}
