package attr

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = &Map{}
	_ msgpack.CustomDecoder = &Map{}
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = &Value{}
)

// EncodeMsgpack implements msgpack.CustomEncoder. Keys are written in map order.
func (m *Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if m == nil {
		return enc.EncodeNil()
	}

	if err := enc.EncodeMapLen(len(m.keys)); err != nil {
		return err
	}
	for _, key := range m.keys {
		if err := enc.EncodeString(key); err != nil {
			return err
		}
		if err := m.values[key].EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (m *Map) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}

	parsed := NewMap()
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return fmt.Errorf("%w: msgpack map key: %s", ErrInvalidData, err)
		}
		var item Value
		if err := item.DecodeMsgpack(dec); err != nil {
			return err
		}
		parsed.Set(key, item)
	}
	*m = *parsed
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case Null:
		return enc.EncodeNil()
	case Bool:
		return enc.EncodeBool(v.b)
	case String:
		return enc.EncodeString(v.s)
	case Number:
		n, err := v.numberToInterface()
		if err != nil {
			return err
		}
		switch t := n.(type) {
		case int64:
			return enc.EncodeInt(t)
		case uint64:
			return enc.EncodeUint(t)
		default:
			return enc.EncodeFloat64(t.(float64))
		}
	case Array:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, item := range v.arr {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case Object:
		return v.obj.EncodeMsgpack(enc)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidData, v.kind)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}

	switch {
	case msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32:
		m := NewMap()
		if err := m.DecodeMsgpack(dec); err != nil {
			return err
		}
		*v = ObjectValue(m)
		return nil

	case msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			var item Value
			if err := item.DecodeMsgpack(dec); err != nil {
				return err
			}
			items = append(items, item)
		}
		*v = ArrayValue(items...)
		return nil

	default:
		x, err := dec.DecodeInterfaceLoose()
		if err != nil {
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
