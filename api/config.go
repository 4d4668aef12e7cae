package api

import (
	"sync"

	"github.com/safing/portsync/config"
)

// Config Keys.
const (
	CfgListenAddressKey = "api/listenAddress"

	DefaultListenAddress = "127.0.0.1:8817"
)

var (
	registerOptionsOnce sync.Once
	registerOptionsErr  error
)

// RegisterOptions registers the configuration options of the API. It may be
// called multiple times.
func RegisterOptions() error {
	registerOptionsOnce.Do(func() {
		registerOptionsErr = config.Register(&config.Option{
			Name:            "API Address",
			Key:             CfgListenAddressKey,
			Description:     "IP address and port of the HTTP API.",
			OptType:         config.OptTypeString,
			DefaultValue:    DefaultListenAddress,
			ValidationRegex: `^([0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}:[0-9]{1,5}|\[[:0-9A-Fa-f]+\]:[0-9]{1,5}|:[0-9]{1,5})$`,
		})
	})
	return registerOptionsErr
}

// ListenAddress returns the configured listen address.
func ListenAddress() string {
	if err := RegisterOptions(); err != nil {
		return DefaultListenAddress
	}
	return config.GetAsString(CfgListenAddressKey, DefaultListenAddress)()
}
