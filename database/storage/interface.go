package storage

import (
	"context"

	"github.com/safing/portsync/database/iterator"
)

// Interface defines the raw key/value storage API. Values are opaque to the
// storage.
type Interface interface {
	// Primary Interface
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	// Query iterates over all entries whose key starts with prefix, in key order.
	Query(prefix string) (*iterator.Iterator, error)

	// Information and Control
	ReadOnly() bool
	Maintain(ctx context.Context) error
	Shutdown() error
}
