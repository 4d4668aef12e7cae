package attr

import (
	"encoding/json"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const testJSON = `{"name":"Golden Cog","count":3,"price":12.5,"big":18446744073709551615,"tags":["a","b"],"nested":{"z":1,"a":null,"ok":true},"empty":{},"list":[]}`

func TestParseJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	m, err := ParseJSON([]byte(testJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "count", "price", "big", "tags", "nested", "empty", "list"}, m.Keys())
	assert.Equal(t, "Golden Cog", m.GetString("name"))

	nested, ok := m.Get("nested")
	require.True(t, ok)
	assert.Equal(t, Object, nested.Kind())
	assert.Equal(t, []string{"z", "a", "ok"}, nested.Object().Keys())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, testJSON, string(data))

	_, err = ParseJSON([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotAnObject)
	_, err = ParseJSON([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestMapOperations(t *testing.T) {
	t.Parallel()

	var m Map
	m.Set("b", IntValue(1))
	m.Set("a", StringValue("x"))
	m.Set("b", IntValue(2))
	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get("b")
	require.True(t, ok)
	n, err := v.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	c := m.Clone()
	m.Delete("b")
	m.Delete("missing")
	assert.Equal(t, []string{"a"}, m.Keys())
	assert.True(t, c.Has("b"), "clone must not be affected")

	other := NewMap()
	other.Set("a", StringValue("x"))
	other.Set("b", NumberValue("2.0"))
	assert.True(t, c.Equal(other), "order and number text are ignored")
	other.Set("b", NumberValue("2.5"))
	assert.False(t, c.Equal(other))

	var visited []string
	c.Range(func(key string, _ Value) bool {
		visited = append(visited, key)
		return false
	})
	assert.Equal(t, []string{"b"}, visited)
}

func TestInterfaceConversion(t *testing.T) {
	t.Parallel()

	m, err := MapFromInterface(map[string]interface{}{
		"s":     "str",
		"i":     42,
		"f":     1.5,
		"b":     false,
		"n":     nil,
		"list":  []interface{}{"x", uint8(1)},
		"obj":   map[string]interface{}{"k": "v"},
		"names": []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "f", "i", "list", "n", "names", "obj", "s"}, m.Keys())

	plain := m.Interface()
	assert.Equal(t, int64(42), plain["i"])
	assert.Equal(t, 1.5, plain["f"])
	assert.Equal(t, []interface{}{"x", int64(1)}, plain["list"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, plain["obj"])
	assert.Nil(t, plain["n"])

	_, err = FromInterface(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCodecs(t *testing.T) {
	t.Parallel()

	original, err := ParseJSON([]byte(testJSON))
	require.NoError(t, err)

	t.Run("cbor", func(t *testing.T) {
		t.Parallel()

		data, err := cbor.Marshal(original)
		require.NoError(t, err)

		loaded := &Map{}
		require.NoError(t, cbor.Unmarshal(data, loaded))
		assert.True(t, original.Equal(loaded), spew.Sdump(loaded))
		assert.Equal(t, original.Keys(), loaded.Keys())
	})

	t.Run("msgpack", func(t *testing.T) {
		t.Parallel()

		data, err := msgpack.Marshal(original)
		require.NoError(t, err)

		loaded := &Map{}
		require.NoError(t, msgpack.Unmarshal(data, loaded))
		assert.True(t, original.Equal(loaded), spew.Sdump(loaded))
		assert.Equal(t, original.Keys(), loaded.Keys())
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(original)
		require.NoError(t, err)

		loaded := &Map{}
		require.NoError(t, json.Unmarshal(data, loaded))
		assert.True(t, original.Equal(loaded), spew.Sdump(loaded))
	})
}

func TestLargeContainers(t *testing.T) {
	t.Parallel()

	m := NewMap()
	items := make([]Value, 300)
	for i := range items {
		items[i] = IntValue(int64(i))
	}
	m.Set("items", ArrayValue(items...))

	data, err := cbor.Marshal(m)
	require.NoError(t, err)
	loaded := &Map{}
	require.NoError(t, cbor.Unmarshal(data, loaded))
	assert.True(t, m.Equal(loaded))
}

func TestValueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", StringValue("plain").String())
	assert.Equal(t, "12", IntValue(12).String())
	assert.Equal(t, "null", NullValue().String())
	assert.Equal(t, `["a",true]`, ArrayValue(StringValue("a"), BoolValue(true)).String())
	assert.Equal(t, "{}", ObjectValue(nil).String())
}
