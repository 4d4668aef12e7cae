package adapter

import (
	"sync"

	"github.com/safing/portsync/config"
	"github.com/safing/portsync/formats/dsd"
)

// Configuration option keys.
const (
	CfgOptionNameKey        = "database/name"
	CfgOptionStorageTypeKey = "database/storageType"
	CfgOptionLocationKey    = "database/location"
	CfgOptionFormatKey      = "database/format"
	CfgOptionCompressKey    = "database/compress"
	CfgOptionCacheSizeKey   = "database/cacheSize"
)

var (
	registerOptionsOnce sync.Once
	registerOptionsErr  error
)

// RegisterOptions registers the configuration options of the adapter. It
// may be called multiple times.
func RegisterOptions() error {
	registerOptionsOnce.Do(func() {
		registerOptionsErr = registerOptions()
	})
	return registerOptionsErr
}

func registerOptions() error {
	for _, option := range []*config.Option{
		{
			Name:            "Database Name",
			Key:             CfgOptionNameKey,
			Description:     "Name of the document database.",
			OptType:         config.OptTypeString,
			DefaultValue:    "portsync",
			ValidationRegex: `^[A-Za-z0-9_.-]+$`,
		},
		{
			Name:            "Storage Type",
			Key:             CfgOptionStorageTypeKey,
			Description:     "Storage backend of the database. Empty selects bbolt, or hashmap without location.",
			OptType:         config.OptTypeString,
			DefaultValue:    "",
			ValidationRegex: `^(|hashmap|bbolt|badger|sinkhole)$`,
		},
		{
			Name:         "Database Location",
			Key:          CfgOptionLocationKey,
			Description:  "Directory of file backed storages.",
			OptType:      config.OptTypeString,
			DefaultValue: "",
		},
		{
			Name:            "Document Format",
			Key:             CfgOptionFormatKey,
			Description:     "Serialization format of stored documents.",
			OptType:         config.OptTypeString,
			DefaultValue:    "json",
			ValidationRegex: `^(json|cbor|msgpack|yaml)$`,
		},
		{
			Name:         "Compress Documents",
			Key:          CfgOptionCompressKey,
			Description:  "Compress stored documents with GZIP.",
			OptType:      config.OptTypeBool,
			DefaultValue: false,
		},
		{
			Name:            "Cache Size",
			Key:             CfgOptionCacheSizeKey,
			Description:     "Amount of documents kept in the read cache. 0 disables the cache.",
			OptType:         config.OptTypeInt,
			DefaultValue:    DefaultCacheSize,
			ValidationRegex: `^[0-9]+$`,
		},
	} {
		if err := config.Register(option); err != nil {
			return err
		}
	}
	return nil
}

// ConfigurationFromOptions returns the configuration defined by the
// registered options.
func ConfigurationFromOptions() (Configuration, error) {
	if err := RegisterOptions(); err != nil {
		return Configuration{}, err
	}

	format, err := dsd.ParseSerializationFormat(config.GetAsString(CfgOptionFormatKey, "json")())
	if err != nil {
		return Configuration{}, err
	}

	return Configuration{
		Name:        config.GetAsString(CfgOptionNameKey, "portsync")(),
		StorageType: config.GetAsString(CfgOptionStorageTypeKey, "")(),
		Location:    config.GetAsString(CfgOptionLocationKey, "")(),
		Format:      format,
		Compress:    config.GetAsBool(CfgOptionCompressKey, false)(),
		CacheSize:   int(config.GetAsInt(CfgOptionCacheSizeKey, DefaultCacheSize)()),
	}, nil
}

// ConfigureFromOptions configures the adapter from the registered options.
func ConfigureFromOptions() error {
	cfg, err := ConfigurationFromOptions()
	if err != nil {
		return err
	}
	return Configure(cfg)
}
