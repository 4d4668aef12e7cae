package dsd

// dynamic structured data
// check here for some benchmarks: https://github.com/alecthomas/go_serialization_benchmarks

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ghodss/yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/safing/portsync/formats/varint"
)

// Load loads an dsd structured data blob into the given interface.
// Compressed blobs are decompressed transparently.
func Load(data []byte, t interface{}) (format SerializationFormat, err error) {
	format, read, err := loadFormat(data)
	if err != nil {
		return 0, err
	}

	if CompressionFormat(format) == GZIP {
		return DecompressAndLoad(data[read:], GZIP, t)
	}

	return format, LoadAsFormat(data[read:], format, t)
}

// LoadAsFormat loads a data blob into the interface using the specified format.
func LoadAsFormat(data []byte, format SerializationFormat, t interface{}) (err error) {
	switch format {
	case JSON:
		err = json.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack json: %w, data: %s", err, string(data))
		}
		return nil
	case CBOR:
		err = cbor.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack cbor: %w", err)
		}
		return nil
	case MsgPack:
		err = msgpack.Unmarshal(data, t)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack msgpack: %w", err)
		}
		return nil
	case YAML:
		jsonData, err := yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("dsd: failed to unpack yaml: %w", err)
		}
		return LoadAsFormat(jsonData, JSON, t)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

func loadFormat(data []byte) (format SerializationFormat, read int, err error) {
	format8, read, err := varint.Unpack8(data)
	if err != nil {
		return 0, 0, err
	}
	if len(data) <= read {
		return 0, 0, ErrNoMoreSpace
	}

	return SerializationFormat(format8), read, nil
}

// Dump stores the interface as a dsd formatted data structure.
func Dump(t interface{}, format SerializationFormat) ([]byte, error) {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return nil, err
	}

	return append(varint.Pack8(uint8(format)), data...), nil
}

// DumpWithoutIdentifier stores the interface as a data structure, without
// format identifier.
func DumpWithoutIdentifier(t interface{}, format SerializationFormat) ([]byte, error) {
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrIncompatibleFormat
	}

	var data []byte
	var err error
	switch format {
	case JSON:
		data, err = json.Marshal(t)
		if err != nil {
			return nil, err
		}
	case CBOR:
		data, err = cbor.Marshal(t)
		if err != nil {
			return nil, err
		}
	case MsgPack:
		data, err = msgpack.Marshal(t)
		if err != nil {
			return nil, err
		}
	case YAML:
		data, err = yaml.Marshal(t)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}

	return data, nil
}
