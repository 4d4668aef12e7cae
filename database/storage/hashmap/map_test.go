package hashmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/portsync/database/storage"
	"github.com/safing/portsync/database/storage/storagetest"
)

func TestHashMap(t *testing.T) {
	t.Parallel()

	db, err := storage.StartDatabase("test", "hashmap", "")
	require.NoError(t, err)

	storagetest.Run(t, db)
	assert.Equal(t, 3, db.(*HashMap).Len())

	require.NoError(t, db.Shutdown())
	assert.Equal(t, 0, db.(*HashMap).Len())
}
