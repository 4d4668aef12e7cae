package database

import (
	"sync"

	"github.com/safing/portsync/log"
)

// Change describes a successful write.
type Change struct {
	ID      string
	Rev     string
	Deleted bool
	// Seq is the per controller sequence number of the change.
	Seq uint64
}

// Subscription is a database subscription for changes.
type Subscription struct {
	Feed chan *Change

	controller *Controller
	closeOnce  sync.Once
}

// Subscribe subscribes to all changes of the database.
// The feed is closed when the subscription is cancelled or the database shuts down.
func (c *Controller) Subscribe() *Subscription {
	sub := &Subscription{
		Feed:       make(chan *Change, 100),
		controller: c,
	}

	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()

	if c.shuttingDown.IsSet() {
		sub.close()
		return sub
	}
	c.subscriptions = append(c.subscriptions, sub)
	return sub
}

// Cancel cancels the subscription.
func (s *Subscription) Cancel() {
	c := s.controller

	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()

	for i, sub := range c.subscriptions {
		if sub == s {
			c.subscriptions = append(c.subscriptions[:i], c.subscriptions[i+1:]...)
			break
		}
	}
	s.close()
}

// close must be called with the subscriptions lock held.
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.Feed)
	})
}

func (c *Controller) notify(change *Change) {
	c.subscriptionsLock.RLock()
	defer c.subscriptionsLock.RUnlock()

	for _, sub := range c.subscriptions {
		select {
		case sub.Feed <- change:
		default:
			log.Warningf("database: subscriber of %s is too slow, dropping change %d of %s", c.name, change.Seq, change.ID)
		}
	}
}
