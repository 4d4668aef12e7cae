package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safing/portsync/log"
)

// Maintain purges tombstones of documents deleted before purgeDeletedBefore
// and runs the maintenance of the storage. It returns the amount of purged
// tombstones.
func (c *Controller) Maintain(ctx context.Context, purgeDeletedBefore time.Time) (purged int, err error) {
	if c.shuttingDown.IsSet() {
		return 0, ErrShuttingDown
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	it, err := c.storage.Query(docKeyPrefix)
	if err != nil {
		return 0, err
	}

	// Collect candidates first, the storage is modified below.
	var candidates []string
	threshold := purgeDeletedBefore.Unix()
collect:
	for {
		select {
		case <-ctx.Done():
			it.Cancel()
			return 0, ctx.Err()
		case item, ok := <-it.Next:
			if !ok {
				break collect
			}
			e, err := decodeEntry(item.Data, false)
			if err != nil {
				log.Warningf("database: maintenance of %s skips %s: %s", c.name, item.Key, err)
				continue
			}
			if e.meta.Deleted && e.meta.Modified < threshold {
				candidates = append(candidates, idFromKey(item.Key))
			}
		}
	}
	if err := it.Err(); err != nil {
		return 0, err
	}

	for _, id := range candidates {
		if ctx.Err() != nil {
			break
		}
		ok, err := c.purge(id, threshold)
		if err != nil {
			return purged, err
		}
		if ok {
			purged++
		}
	}
	if purged > 0 {
		log.Infof("database: purged %d deleted documents from %s", purged, c.name)
	}

	if err := c.storage.Maintain(ctx); err != nil {
		return purged, fmt.Errorf("storage maintenance of %s failed: %w", c.name, err)
	}
	return purged, nil
}

// purge removes the tombstone of id, if it still is one.
func (c *Controller) purge(id string, threshold int64) (bool, error) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	e, err := c.getEntryLocked(id)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	case !e.meta.Deleted || e.meta.Modified >= threshold:
		return false, nil
	}

	if err := c.storage.Delete(docKey(id)); err != nil {
		return false, err
	}
	c.uncache(id)
	return true, nil
}
