package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/portsync/database/storage/storagetest"
)

func TestBadger(t *testing.T) {
	t.Parallel()

	location := t.TempDir()

	db, err := NewBadger("test", location)
	require.NoError(t, err)
	storagetest.Run(t, db)
	require.NoError(t, db.Shutdown())

	// data survives a restart
	db, err = NewBadger("test", location)
	require.NoError(t, err)
	data, err := db.Get("doc:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("apple"), data)
	require.NoError(t, db.Shutdown())
}
