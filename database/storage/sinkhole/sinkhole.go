package sinkhole

import (
	"context"

	"github.com/safing/portsync/database/iterator"
	"github.com/safing/portsync/database/storage"
)

// Sinkhole is a dummy storage that accepts all writes and forgets them.
type Sinkhole struct {
	name string
}

func init() {
	_ = storage.Register("sinkhole", NewSinkhole)
}

// NewSinkhole creates a dummy database.
func NewSinkhole(name, location string) (storage.Interface, error) {
	return &Sinkhole{
		name: name,
	}, nil
}

// Get returns storage.ErrNotFound.
func (s *Sinkhole) Get(key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

// Put discards data.
func (s *Sinkhole) Put(key string, data []byte) error {
	return storage.ValidateKey(key)
}

// Delete does nothing.
func (s *Sinkhole) Delete(key string) error {
	return nil
}

// Query returns an empty iterator.
func (s *Sinkhole) Query(prefix string) (*iterator.Iterator, error) {
	queryIter := iterator.New()
	queryIter.Finish(nil)
	return queryIter, nil
}

// ReadOnly returns whether the database is read only.
func (s *Sinkhole) ReadOnly() bool {
	return false
}

// Maintain runs a light maintenance operation on the database.
func (s *Sinkhole) Maintain(_ context.Context) error {
	return nil
}

// Shutdown shuts down the database.
func (s *Sinkhole) Shutdown() error {
	return nil
}
