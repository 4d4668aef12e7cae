package config

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// valueCache holds a validated value in the field matching the option type.
type valueCache struct {
	stringVal      string
	stringArrayVal []string
	intVal         int64
	boolVal        bool
}

func (vc *valueCache) getData(opt *Option) interface{} {
	switch opt.OptType {
	case OptTypeBool:
		return vc.boolVal
	case OptTypeInt:
		return vc.intVal
	case OptTypeString:
		return vc.stringVal
	case OptTypeStringArray:
		return vc.stringArrayVal
	default:
		return nil
	}
}

func validateValue(option *Option, value interface{}) (*valueCache, error) {
	switch v := value.(type) {
	case string:
		if err := option.expectType(OptTypeString, v); err != nil {
			return nil, err
		}
		if !option.matches(v) {
			return nil, newInvalidValueError(option.Key, v, "validation regex failed")
		}
		return &valueCache{stringVal: v}, nil

	case []interface{}:
		converted := make([]string, len(v))
		for i, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, newInvalidValueError(option.Key, fmt.Sprintf("element %+v at index %d", entry, i), "not a string")
			}
			converted[i] = s
		}
		return validateValue(option, converted)

	case []string:
		if err := option.expectType(OptTypeStringArray, v); err != nil {
			return nil, err
		}
		for i, entry := range v {
			if !option.matches(entry) {
				return nil, newInvalidValueError(option.Key, fmt.Sprintf("element %s at index %d", entry, i), "validation regex failed")
			}
		}
		return &valueCache{stringArrayVal: v}, nil

	case bool:
		if err := option.expectType(OptTypeBool, v); err != nil {
			return nil, err
		}
		return &valueCache{boolVal: v}, nil

	// uint64 does not fit into int64.
	case int:
		return validateInt(option, v)
	case int8:
		return validateInt(option, v)
	case int16:
		return validateInt(option, v)
	case int32:
		return validateInt(option, v)
	case int64:
		return validateInt(option, v)
	case uint:
		return validateInt(option, v)
	case uint8:
		return validateInt(option, v)
	case uint16:
		return validateInt(option, v)
	case uint32:
		return validateInt(option, v)
	case float32:
		return validateInt(option, v)
	case float64:
		return validateInt(option, v)

	default:
		return nil, newInvalidValueError(option.Key, fmt.Sprintf("%T", v), "invalid value")
	}
}

// validateInt accepts integers and whole floats, as decoded json numbers are
// always float64.
func validateInt[T constraints.Integer | constraints.Float](option *Option, v T) (*valueCache, error) {
	if err := option.expectType(OptTypeInt, v); err != nil {
		return nil, err
	}
	if math.Remainder(float64(v), 1) != 0 {
		return nil, newInvalidValueError(option.Key, v, "not a whole number")
	}
	if !option.matches(fmt.Sprintf("%v", v)) {
		return nil, newInvalidValueError(option.Key, v, "validation regex failed")
	}
	return &valueCache{intVal: int64(v)}, nil
}

func (option *Option) expectType(optType OptType, v interface{}) error {
	if option.OptType != optType {
		return newInvalidValueError(option.Key, fmt.Sprintf("%T", v), "expected type "+getTypeName(option.OptType))
	}
	return nil
}

func (option *Option) matches(s string) bool {
	return option.compiledRegex == nil || option.compiledRegex.MatchString(s)
}
