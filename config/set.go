package config

import (
	"fmt"
	"sync"

	"github.com/tevino/abool"

	"github.com/safing/portsync/events"
)

// ChangeEvent is emitted on Events after every configuration change.
const ChangeEvent = "config change"

var (
	// Events emits ChangeEvent.
	Events = events.NewEmitter("config")

	validityFlag     = abool.NewBool(true)
	validityFlagLock sync.RWMutex
)

// getValidityFlag returns a flag that signifies if the configuration has been changed. This flag must not be changed, only read.
func getValidityFlag() *abool.AtomicBool {
	validityFlagLock.RLock()
	defer validityFlagLock.RUnlock()
	return validityFlag
}

// signalChanges marks the validity flag as dirty and emits ChangeEvent.
func signalChanges() {
	validityFlagLock.Lock()
	validityFlag.SetTo(false)
	validityFlag = abool.NewBool(true)
	validityFlagLock.Unlock()

	Events.Emit(ChangeEvent, nil)
}

// SetConfig replaces the (prioritized) user defined config. Keys of
// unregistered options are ignored.
func SetConfig(newValues map[string]interface{}) error {
	return replaceValues(newValues, func(option *Option, vc *valueCache) {
		option.activeValue = vc
	})
}

// SetDefaultConfig replaces the (fallback) default config.
func SetDefaultConfig(newValues map[string]interface{}) error {
	return replaceValues(newValues, func(option *Option, vc *valueCache) {
		option.activeDefault = vc
	})
}

func replaceValues(newValues map[string]interface{}, set func(*Option, *valueCache)) error {
	var firstErr error
	var errCnt int

	// Options are not added or removed here, only their values change, which
	// are guarded by the option's own lock.
	optionsLock.RLock()
	for key, option := range options {
		newValue, ok := newValues[key]

		option.Lock()
		set(option, nil)
		if ok {
			vc, err := validateValue(option, newValue)
			if err == nil {
				set(option, vc)
			} else {
				errCnt++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		option.Unlock()
	}
	optionsLock.RUnlock()

	signalChanges()

	if firstErr != nil {
		if errCnt > 1 {
			return fmt.Errorf("encountered %d errors, first was: %w", errCnt, firstErr)
		}
		return firstErr
	}
	return nil
}

// SetConfigOption sets a single value in the (prioritized) user defined
// config and saves the config file, if one is configured. A nil value resets
// the option.
func SetConfigOption(key string, value interface{}) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	option.Lock()
	if value == nil {
		option.activeValue = nil
	} else {
		var vc *valueCache
		vc, err = validateValue(option, value)
		if err == nil {
			option.activeValue = vc
		}
	}
	option.Unlock()
	if err != nil {
		return err
	}

	signalChanges()
	return saveConfig()
}

// SetDefaultConfigOption sets a single value in the (fallback) default config.
func SetDefaultConfigOption(key string, value interface{}) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	option.Lock()
	if value == nil {
		option.activeDefault = nil
	} else {
		var vc *valueCache
		vc, err = validateValue(option, value)
		if err == nil {
			option.activeDefault = vc
		}
	}
	option.Unlock()
	if err != nil {
		return err
	}

	// The config file only holds active values, no need to save.
	signalChanges()
	return nil
}
