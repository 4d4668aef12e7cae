package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger"

	"github.com/safing/portsync/database/iterator"
	"github.com/safing/portsync/database/storage"
	"github.com/safing/portsync/log"
)

// Badger database made pluggable for portsync.
type Badger struct {
	name string
	db   *badger.DB
}

func init() {
	_ = storage.Register("badger", NewBadger)
}

// NewBadger opens/creates a badger database.
func NewBadger(name, location string) (storage.Interface, error) {
	opts := badger.DefaultOptions(location).WithLogger(&logger{name: name})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Badger{
		name: name,
		db:   db,
	}, nil
}

// Get returns the data stored at key.
func (b *Badger) Get(key string) ([]byte, error) {
	var data []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put stores data at key.
func (b *Badger) Put(key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete deletes the entry at key.
func (b *Badger) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Query returns an iterator over all entries with the given key prefix.
func (b *Badger) Query(prefix string) (*iterator.Iterator, error) {
	queryIter := iterator.New()

	go b.queryExecutor(queryIter, []byte(prefix))
	return queryIter, nil
}

func (b *Badger) queryExecutor(queryIter *iterator.Iterator, prefix []byte) {
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if !queryIter.Send(&iterator.Item{
				Key:  string(item.KeyCopy(nil)),
				Data: data,
			}) {
				return nil
			}
		}
		return nil
	})
	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (b *Badger) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (b *Badger) Maintain(ctx context.Context) error {
	for {
		err := b.db.RunValueLogGC(0.7)
		switch {
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			return nil
		case err != nil:
			return err
		}

		// check if context is cancelled
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// Shutdown shuts down the database.
func (b *Badger) Shutdown() error {
	return b.db.Close()
}

// logger routes badger log output into the portsync log.
type logger struct {
	name string
}

func (l *logger) Errorf(format string, args ...interface{}) {
	log.Errorf("badger/"+l.name+": "+format, args...)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	log.Warningf("badger/"+l.name+": "+format, args...)
}

func (l *logger) Infof(format string, args ...interface{}) {
	log.Debugf("badger/"+l.name+": "+format, args...)
}

func (l *logger) Debugf(format string, args ...interface{}) {
	log.Tracef("badger/"+l.name+": "+format, args...)
}
