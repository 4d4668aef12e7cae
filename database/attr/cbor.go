package attr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR major types.
const (
	cborArray byte = 4
	cborMap   byte = 5
)

// MarshalCBOR implements cbor.Marshaler. Keys are written in map order.
func (m *Map) MarshalCBOR() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := m.writeCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (m *Map) UnmarshalCBOR(data []byte) error {
	var v Value
	if err := v.UnmarshalCBOR(data); err != nil {
		return err
	}
	if v.kind != Object {
		return ErrNotAnObject
	}
	*m = *v.obj
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := v.writeCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	major, n, headLen, err := readCBORHead(data)
	if err != nil {
		return err
	}

	switch major {
	case cborArray:
		dec := cbor.NewDecoder(bytes.NewReader(data[headLen:]))
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			var item Value
			if err := decodeCBORValue(dec, &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		*v = ArrayValue(items...)
		return nil

	case cborMap:
		dec := cbor.NewDecoder(bytes.NewReader(data[headLen:]))
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			var key string
			if err := dec.Decode(&key); err != nil {
				return fmt.Errorf("%w: cbor map key: %s", ErrInvalidData, err)
			}
			var item Value
			if err := decodeCBORValue(dec, &item); err != nil {
				return err
			}
			m.Set(key, item)
		}
		*v = ObjectValue(m)
		return nil

	default:
		var x interface{}
		if err := cbor.Unmarshal(data, &x); err != nil {
			return err
		}
		parsed, err := FromInterface(x)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}
}

func decodeCBORValue(dec *cbor.Decoder, v *Value) error {
	var raw cbor.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return v.UnmarshalCBOR(raw)
}

func (m *Map) writeCBOR(buf *bytes.Buffer) error {
	if m == nil {
		buf.WriteByte(0xf6) // null
		return nil
	}

	buf.Write(cborHead(cborMap, uint64(len(m.keys))))
	for _, key := range m.keys {
		keyData, err := cbor.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(keyData)
		if err := m.values[key].writeCBOR(buf); err != nil {
			return err
		}
	}
	return nil
}

func (v Value) writeCBOR(buf *bytes.Buffer) error {
	var x interface{}
	switch v.kind {
	case Null:
		x = nil
	case Bool:
		x = v.b
	case String:
		x = v.s
	case Number:
		n, err := v.numberToInterface()
		if err != nil {
			return err
		}
		x = n
	case Array:
		buf.Write(cborHead(cborArray, uint64(len(v.arr))))
		for _, item := range v.arr {
			if err := item.writeCBOR(buf); err != nil {
				return err
			}
		}
		return nil
	case Object:
		return v.obj.writeCBOR(buf)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidData, v.kind)
	}

	data, err := cbor.Marshal(x)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func cborHead(major byte, n uint64) []byte {
	switch {
	case n < 24:
		return []byte{major<<5 | byte(n)}
	case n <= 0xff:
		return []byte{major<<5 | 24, byte(n)}
	case n <= 0xffff:
		head := make([]byte, 3)
		head[0] = major<<5 | 25
		binary.BigEndian.PutUint16(head[1:], uint16(n))
		return head
	case n <= 0xffffffff:
		head := make([]byte, 5)
		head[0] = major<<5 | 26
		binary.BigEndian.PutUint32(head[1:], uint32(n))
		return head
	default:
		head := make([]byte, 9)
		head[0] = major<<5 | 27
		binary.BigEndian.PutUint64(head[1:], n)
		return head
	}
}

func readCBORHead(data []byte) (major byte, n uint64, headLen int, err error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty cbor data", ErrInvalidData)
	}

	major = data[0] >> 5
	info := data[0] & 0x1f
	switch {
	case info < 24:
		return major, uint64(info), 1, nil
	case info == 24 && len(data) >= 2:
		return major, uint64(data[1]), 2, nil
	case info == 25 && len(data) >= 3:
		return major, uint64(binary.BigEndian.Uint16(data[1:3])), 3, nil
	case info == 26 && len(data) >= 5:
		return major, uint64(binary.BigEndian.Uint32(data[1:5])), 5, nil
	case info == 27 && len(data) >= 9:
		return major, binary.BigEndian.Uint64(data[1:9]), 9, nil
	case info == 31 && (major == cborArray || major == cborMap):
		return 0, 0, 0, fmt.Errorf("%w: indefinite length cbor containers are not supported", ErrInvalidData)
	case major == cborArray || major == cborMap:
		return 0, 0, 0, fmt.Errorf("%w: truncated cbor head", ErrInvalidData)
	default:
		// Scalars with extended heads are decoded by the cbor library.
		return major, 0, 0, nil
	}
}
