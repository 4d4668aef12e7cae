package dsd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SimpleTestStruct struct {
	S string
	B byte
}

type ComplexTestStruct struct {
	I    int
	I8   int8
	I64  int64
	Ui   uint
	Ui16 uint16
	S    string
	Sa   []string
	B    byte
	Ba   []byte
	M    map[string]string
}

func TestConversion(t *testing.T) {
	t.Parallel()

	subject := &ComplexTestStruct{
		I:    -1,
		I8:   -8,
		I64:  -64,
		Ui:   1,
		Ui16: 16,
		S:    "a",
		Sa:   []string{"a", "b"},
		B:    0x01,
		Ba:   []byte{0x01, 0x02},
		M:    map[string]string{"a": "b"},
	}

	for _, format := range []SerializationFormat{JSON, CBOR, MsgPack, YAML} {
		data, err := Dump(subject, format)
		require.NoError(t, err, format.String())
		assert.Equal(t, byte(format), data[0])

		loaded := &ComplexTestStruct{}
		loadedFormat, err := Load(data, loaded)
		require.NoError(t, err, format.String())
		assert.Equal(t, format, loadedFormat)
		assert.Equal(t, subject, loaded, format.String())

		compressed, err := DumpAndCompress(subject, format, GZIP)
		require.NoError(t, err, format.String())
		assert.Equal(t, byte(GZIP), compressed[0])

		loaded = &ComplexTestStruct{}
		loadedFormat, err = Load(compressed, loaded)
		require.NoError(t, err, format.String())
		assert.Equal(t, format, loadedFormat)
		assert.Equal(t, subject, loaded, format.String())
	}
}

func TestAutoFormat(t *testing.T) {
	t.Parallel()

	data, err := Dump(&SimpleTestStruct{S: "x", B: 2}, AUTO)
	require.NoError(t, err)
	assert.Equal(t, byte(DefaultSerializationFormat), data[0])

	compressed, err := DumpAndCompress(&SimpleTestStruct{S: "x"}, AUTO, AutoCompress)
	require.NoError(t, err)
	assert.Equal(t, byte(DefaultCompressionFormat), compressed[0])
}

func TestFormatErrors(t *testing.T) {
	t.Parallel()

	_, err := Dump("x", SerializationFormat(1))
	assert.ErrorIs(t, err, ErrIncompatibleFormat)

	_, err = Load([]byte{byte(JSON)}, &SimpleTestStruct{})
	assert.ErrorIs(t, err, ErrNoMoreSpace)

	err = LoadAsFormat([]byte("{}"), SerializationFormat(2), &SimpleTestStruct{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseSerializationFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err := ParseSerializationFormat("msgpack")
	require.NoError(t, err)
	assert.Equal(t, MsgPack, f)
}

func TestHTTP(t *testing.T) {
	t.Parallel()

	// Request loading.
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"S":"x","B":3}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	loaded := &SimpleTestStruct{}
	format, err := LoadFromHTTPRequest(r, loaded)
	require.NoError(t, err)
	assert.Equal(t, JSON, format)
	assert.Equal(t, &SimpleTestStruct{S: "x", B: 3}, loaded)

	r = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil))
	_, err = LoadFromHTTPRequest(r, loaded)
	assert.ErrorIs(t, err, ErrMissingContentType)

	// Response negotiation.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "application/xml, application/yaml;q=0.9")
	w := httptest.NewRecorder()
	require.NoError(t, DumpToHTTPResponse(w, r, &SimpleTestStruct{S: "hello"}, http.StatusOK, JSON))
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "S: hello")

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	require.NoError(t, DumpToHTTPResponse(w, r, &SimpleTestStruct{S: "y"}, http.StatusCreated, JSON))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"S":"y","B":0}`, w.Body.String())

	assert.Equal(t, "text/yaml", extractMimeType("Text/YAML; q=0.9"))
}
