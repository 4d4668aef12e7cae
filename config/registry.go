package config

import (
	"fmt"
	"regexp"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	optionsLock sync.RWMutex
	options     = make(map[string]*Option)
)

// Register registers a new configuration option.
func Register(option *Option) error {
	if option.Name == "" ||
		option.Key == "" ||
		option.Description == "" ||
		option.OptType == 0 {
		return newInvalidOptionError("all fields, except for the ValidationRegex, are mandatory", ErrIncompleteCall)
	}

	if option.ValidationRegex != "" {
		var err error
		option.compiledRegex, err = regexp.Compile(option.ValidationRegex)
		if err != nil {
			return newInvalidOptionError(fmt.Sprintf("could not compile ValidationRegex of %s", option.Key), err)
		}
	}

	if option.DefaultValue != nil {
		if _, err := validateValue(option, option.DefaultValue); err != nil {
			return newInvalidOptionError(fmt.Sprintf("invalid default value of %s", option.Key), err)
		}
	}

	optionsLock.Lock()
	defer optionsLock.Unlock()

	if _, ok := options[option.Key]; ok {
		return newInvalidOptionError(fmt.Sprintf("%s already registered", option.Key), ErrOptionExists)
	}
	options[option.Key] = option
	return nil
}

// GetOption returns the option with the given key.
func GetOption(key string) (*Option, error) {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	option, ok := options[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	return option, nil
}

// Keys returns the keys of all registered options, sorted.
func Keys() []string {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	keys := maps.Keys(options)
	slices.Sort(keys)
	return keys
}

// unregister removes an option, used by tests.
func unregister(key string) {
	optionsLock.Lock()
	defer optionsLock.Unlock()

	delete(options, key)
}
