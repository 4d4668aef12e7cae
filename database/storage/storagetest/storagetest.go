// Package storagetest provides a conformance test for storage backends.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/portsync/database/storage"
)

// Run tests the basic behavior every writable storage must provide.
func Run(t *testing.T, db storage.Interface) {
	t.Helper()

	// missing entries
	_, err := db.Get("doc:missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// put and get
	require.NoError(t, db.Put("doc:b", []byte("banana")))
	require.NoError(t, db.Put("doc:a", []byte("apple")))
	require.NoError(t, db.Put("doc:c", []byte("cherry")))
	require.NoError(t, db.Put("other:a", []byte("other")))

	data, err := db.Get("doc:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("apple"), data)

	// returned data is not shared with the storage
	data[0] = 'X'
	data, err = db.Get("doc:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("apple"), data)

	// overwrite
	require.NoError(t, db.Put("doc:c", []byte("coconut")))
	data, err = db.Get("doc:c")
	require.NoError(t, err)
	assert.Equal(t, []byte("coconut"), data)

	// prefix query in key order
	assert.Equal(t, []string{"doc:a", "doc:b", "doc:c"}, queryKeys(t, db, "doc:"))
	assert.Len(t, queryKeys(t, db, ""), 4)
	assert.Empty(t, queryKeys(t, db, "none:"))

	// delete
	require.NoError(t, db.Delete("doc:b"))
	require.NoError(t, db.Delete("doc:never-existed"))
	_, err = db.Get("doc:b")
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{"doc:a", "doc:c"}, queryKeys(t, db, "doc:"))

	// cancelled queries finish
	it, err := db.Query("")
	require.NoError(t, err)
	it.Cancel()
	for range it.Next { //nolint:revive
	}

	assert.False(t, db.ReadOnly())
	assert.NoError(t, db.Maintain(context.Background()))
}

func queryKeys(t *testing.T, db storage.Interface, prefix string) []string {
	t.Helper()

	it, err := db.Query(prefix)
	require.NoError(t, err)

	keys := []string{}
	for item := range it.Next {
		keys = append(keys, item.Key)
	}
	require.NoError(t, it.Err())
	return keys
}
