package database

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"

	"github.com/safing/portsync/database/storage"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/utils"
)

var (
	controllers     = make(map[string]*Controller)
	controllersLock sync.Mutex
)

// Open returns the database with the given name, starting it with the given
// storage type at location if it is not yet open. An already open database is
// reused.
func Open(name, storageType, location string, opts *Options) (*Controller, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if opts == nil {
		opts = &Options{}
	}

	controllersLock.Lock()
	defer controllersLock.Unlock()

	// return database if already started
	controller, ok := controllers[name]
	if ok {
		if controller.storageType != storageType {
			return nil, fmt.Errorf("%w: %s is %s", ErrStorageMismatch, name, controller.storageType)
		}
		return controller, nil
	}

	if location != "" {
		if err := utils.EnsureDirectory(location, 0o700); err != nil {
			return nil, fmt.Errorf("could not prepare location of database %s: %w", name, err)
		}
	}

	// start database
	storageInt, err := storage.StartDatabase(name, storageType, location)
	if err != nil {
		return nil, fmt.Errorf("could not start database %s (type %s): %w", name, storageType, err)
	}

	controller = newController(name, storageType, storageInt, *opts)
	controllers[name] = controller
	log.Infof("database: started %s (type %s)", name, storageType)
	return controller, nil
}

// Shutdown shuts down all open databases.
func Shutdown() error {
	controllersLock.Lock()
	open := maps.Values(controllers)
	controllersLock.Unlock()

	var result *multierror.Error
	for _, c := range open {
		if err := c.Shutdown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func removeController(c *Controller) {
	controllersLock.Lock()
	defer controllersLock.Unlock()

	if controllers[c.name] == c {
		delete(controllers, c.name)
		log.Infof("database: stopped %s", c.name)
	}
}
