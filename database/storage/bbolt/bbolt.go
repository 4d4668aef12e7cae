package bbolt

import (
	"bytes"
	"context"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/safing/portsync/database/iterator"
	"github.com/safing/portsync/database/storage"
)

var bucketName = []byte{0}

// BBolt database made pluggable for portsync.
type BBolt struct {
	name string
	db   *bbolt.DB
}

func init() {
	_ = storage.Register("bbolt", NewBBolt)
}

// NewBBolt opens/creates a bbolt database.
func NewBBolt(name, location string) (storage.Interface, error) {
	db, err := bbolt.Open(filepath.Join(location, "db.bbolt"), 0o600, nil)
	if err != nil {
		return nil, err
	}

	// Create bucket
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BBolt{
		name: name,
		db:   db,
	}, nil
}

// Get returns the data stored at key.
func (b *BBolt) Get(key string) ([]byte, error) {
	var data []byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		// get value from db
		value := tx.Bucket(bucketName).Get([]byte(key))
		if value == nil {
			return storage.ErrNotFound
		}

		// copy data, value is only valid during the transaction
		data = make([]byte, len(value))
		copy(data, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put stores data at key.
func (b *BBolt) Put(key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

// Delete deletes the entry at key.
func (b *BBolt) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Query returns an iterator over all entries with the given key prefix.
func (b *BBolt) Query(prefix string) (*iterator.Iterator, error) {
	queryIter := iterator.New()

	go b.queryExecutor(queryIter, []byte(prefix))
	return queryIter, nil
}

func (b *BBolt) queryExecutor(queryIter *iterator.Iterator, prefix []byte) {
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Create a cursor for iteration.
		c := tx.Bucket(bucketName).Cursor()

		// Iterate over items in sorted key order.
		// The loop finishes at the end of the cursor when a nil key is returned.
		for key, value := c.Seek(prefix); key != nil; key, value = c.Next() {
			// if we don't match the prefix anymore, exit
			if !bytes.HasPrefix(key, prefix) {
				return nil
			}

			// copy data
			duplicate := make([]byte, len(value))
			copy(duplicate, value)

			if !queryIter.Send(&iterator.Item{
				Key:  string(key),
				Data: duplicate,
			}) {
				return nil
			}
		}
		return nil
	})
	queryIter.Finish(err)
}

// ReadOnly returns whether the database is read only.
func (b *BBolt) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (b *BBolt) Maintain(_ context.Context) error {
	return nil
}

// Shutdown shuts down the database.
func (b *BBolt) Shutdown() error {
	return b.db.Close()
}
