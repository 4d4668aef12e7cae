package adapter

import (
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/safing/portsync/database"
	"github.com/safing/portsync/formats/dsd"
	"github.com/safing/portsync/log"

	// Storage backends selectable by configuration.
	_ "github.com/safing/portsync/database/storage/badger"
	_ "github.com/safing/portsync/database/storage/bbolt"
	_ "github.com/safing/portsync/database/storage/hashmap"
	_ "github.com/safing/portsync/database/storage/sinkhole"
)

// Storage type defaults.
const (
	DefaultStorageType  = "bbolt"
	InMemoryStorageType = "hashmap"
	DefaultCacheSize    = 256
)

// Configuration is the process wide setup of the adapter.
type Configuration struct {
	// Name is the database name. Required.
	Name string
	// StorageType defaults to bbolt, or hashmap if no Location is set.
	StorageType string
	Location    string

	Format    dsd.SerializationFormat
	Compress  bool
	CacheSize int
}

var (
	stateLock     sync.Mutex
	configuration *Configuration
	db            *database.Controller
)

// Configure sets up the adapter. Configuring again resets the cached store
// handle: the open database is shut down and reopened lazily on next use.
func Configure(cfg Configuration) error {
	if cfg.Name == "" {
		return ErrMissingName
	}
	if cfg.StorageType == "" {
		if cfg.Location == "" {
			cfg.StorageType = InMemoryStorageType
		} else {
			cfg.StorageType = DefaultStorageType
		}
	}

	stateLock.Lock()
	defer stateLock.Unlock()

	err := closeHandle()
	configuration = &cfg
	log.Infof("adapter: configured database %s (type %s)", cfg.Name, cfg.StorageType)
	return err
}

// Reset removes the configuration and shuts down the open database.
func Reset() error {
	stateLock.Lock()
	defer stateLock.Unlock()

	var result *multierror.Error
	if err := closeHandle(); err != nil {
		result = multierror.Append(result, err)
	}
	configuration = nil
	return result.ErrorOrNil()
}

// Configured returns whether Configure was called.
func Configured() bool {
	stateLock.Lock()
	defer stateLock.Unlock()

	return configuration != nil
}

// GetConfiguration returns a copy of the active configuration, or nil.
func GetConfiguration() *Configuration {
	stateLock.Lock()
	defer stateLock.Unlock()

	if configuration == nil {
		return nil
	}
	cfg := *configuration
	return &cfg
}

// Database returns the store handle, opening the database on first use.
func Database() (*database.Controller, error) {
	stateLock.Lock()
	defer stateLock.Unlock()

	if configuration == nil {
		return nil, ErrNotConfigured
	}
	if db != nil {
		return db, nil
	}

	controller, err := database.Open(configuration.Name, configuration.StorageType, configuration.Location, &database.Options{
		Format:    configuration.Format,
		Compress:  configuration.Compress,
		CacheSize: configuration.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	db = controller
	return db, nil
}

// mustBeConfigured panics if the adapter is used before Configure.
func mustBeConfigured() {
	if !Configured() {
		log.Critical("adapter: " + ErrNotConfigured.Error())
		panic(ErrNotConfigured)
	}
}

// closeHandle must be called with stateLock held.
func closeHandle() error {
	if db == nil {
		return nil
	}
	err := db.Shutdown()
	db = nil
	return err
}
