package config

import (
	"encoding/json"
	"regexp"
	"sync"

	"github.com/tidwall/sjson"
)

// OptType is the value type of an option.
type OptType uint8

// Variable Type IDs. Values over 100 are free for custom use.
const (
	OptTypeString      OptType = 1
	OptTypeStringArray OptType = 2
	OptTypeInt         OptType = 3
	OptTypeBool        OptType = 4
)

func getTypeName(t OptType) string {
	switch t {
	case OptTypeString:
		return "string"
	case OptTypeStringArray:
		return "[]string"
	case OptTypeInt:
		return "int"
	case OptTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Option describes a configuration option.
type Option struct {
	sync.Mutex

	Name            string
	Key             string // category/sub/key
	Description     string
	OptType         OptType
	DefaultValue    interface{}
	ValidationRegex string `json:",omitempty"`

	compiledRegex *regexp.Regexp
	activeValue   *valueCache
	activeDefault *valueCache
}

// TypeName returns the name of the option type.
func (option *Option) TypeName() string {
	return getTypeName(option.OptType)
}

// Export returns the option as JSON, including the active value.
func (option *Option) Export() ([]byte, error) {
	option.Lock()
	defer option.Unlock()

	data, err := json.Marshal(option)
	if err != nil {
		return nil, err
	}
	data, err = sjson.SetBytes(data, "Type", getTypeName(option.OptType))
	if err != nil {
		return nil, err
	}

	if option.activeValue != nil {
		data, err = sjson.SetBytes(data, "Value", option.activeValue.getData(option))
		if err != nil {
			return nil, err
		}
	}
	if option.activeDefault != nil {
		data, err = sjson.SetBytes(data, "DefaultValue", option.activeDefault.getData(option))
		if err != nil {
			return nil, err
		}
	}

	return data, nil
}
