package config

import (
	"github.com/safing/portsync/log"
)

type (
	// StringOption defines the returned function by GetAsString.
	StringOption func() string
	// StringArrayOption defines the returned function by GetAsStringArray.
	StringArrayOption func() []string
	// IntOption defines the returned function by GetAsInt.
	IntOption func() int64
	// BoolOption defines the returned function by GetAsBool.
	BoolOption func() bool
)

// GetAsString returns a function that returns the wanted string with high performance.
func GetAsString(key string, fallback string) StringOption {
	valid := getValidityFlag()
	value := findStringValue(key, fallback)
	return func() string {
		if !valid.IsSet() {
			valid = getValidityFlag()
			value = findStringValue(key, fallback)
		}
		return value
	}
}

// GetAsStringArray returns a function that returns the wanted string array with high performance.
func GetAsStringArray(key string, fallback []string) StringArrayOption {
	valid := getValidityFlag()
	value := findStringArrayValue(key, fallback)
	return func() []string {
		if !valid.IsSet() {
			valid = getValidityFlag()
			value = findStringArrayValue(key, fallback)
		}
		return value
	}
}

// GetAsInt returns a function that returns the wanted int with high performance.
func GetAsInt(key string, fallback int64) IntOption {
	valid := getValidityFlag()
	value := findIntValue(key, fallback)
	return func() int64 {
		if !valid.IsSet() {
			valid = getValidityFlag()
			value = findIntValue(key, fallback)
		}
		return value
	}
}

// GetAsBool returns a function that returns the wanted bool with high performance.
func GetAsBool(key string, fallback bool) BoolOption {
	valid := getValidityFlag()
	value := findBoolValue(key, fallback)
	return func() bool {
		if !valid.IsSet() {
			valid = getValidityFlag()
			value = findBoolValue(key, fallback)
		}
		return value
	}
}

// findValue finds the active value, the active default or the default of an option.
func findValue(key string) interface{} {
	optionsLock.RLock()
	option, ok := options[key]
	optionsLock.RUnlock()
	if !ok {
		log.Errorf("config: request for unregistered option: %s", key)
		return nil
	}

	option.Lock()
	defer option.Unlock()

	if option.activeValue != nil {
		return option.activeValue.getData(option)
	}
	if option.activeDefault != nil {
		return option.activeDefault.getData(option)
	}
	return option.DefaultValue
}

func findStringValue(key string, fallback string) string {
	v, ok := findValue(key).(string)
	if ok {
		return v
	}
	return fallback
}

func findStringArrayValue(key string, fallback []string) []string {
	switch v := findValue(key).(type) {
	case []string:
		return v
	case []interface{}:
		converted := make([]string, len(v))
		for i, val := range v {
			s, ok := val.(string)
			if !ok {
				return fallback
			}
			converted[i] = s
		}
		return converted
	}
	return fallback
}

func findIntValue(key string, fallback int64) int64 {
	switch v := findValue(key).(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return fallback
}

func findBoolValue(key string, fallback bool) bool {
	v, ok := findValue(key).(bool)
	if ok {
		return v
	}
	return fallback
}
