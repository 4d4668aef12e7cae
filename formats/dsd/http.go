package dsd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTP Errors.
var (
	ErrMissingBody        = errors.New("dsd: missing http body")
	ErrMissingContentType = errors.New("dsd: missing http content type")
)

const (
	httpHeaderContentType = "Content-Type"
	httpHeaderAccept      = "Accept"
)

// LoadFromHTTPRequest loads the data from the body into the given interface.
// The format is derived from the Content-Type header.
func LoadFromHTTPRequest(r *http.Request, t interface{}) (format SerializationFormat, err error) {
	if r.Body == nil {
		return 0, ErrMissingBody
	}
	defer func() {
		_ = r.Body.Close()
	}()

	// Read full body.
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return 0, fmt.Errorf("dsd: failed to read http body: %w", err)
	}

	// Get mime type from header, then check, clean and verify it.
	mimeType := r.Header.Get(httpHeaderContentType)
	if mimeType == "" {
		return 0, ErrMissingContentType
	}
	format, ok := MimeTypeToFormat[extractMimeType(mimeType)]
	if !ok {
		return 0, ErrIncompatibleFormat
	}

	return format, LoadAsFormat(data, format, t)
}

// DumpToHTTPResponse serializes t in the format requested by the Accept
// header, or the fallback format, and writes it to the response.
func DumpToHTTPResponse(w http.ResponseWriter, r *http.Request, t interface{}, status int, fallbackFormat SerializationFormat) error {
	format := FormatFromAccept(r.Header.Get(httpHeaderAccept))
	if format == AUTO {
		format = fallbackFormat
	}
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return ErrIncompatibleFormat
	}
	mimeType, ok := FormatToMimeType[format]
	if !ok {
		return ErrIncompatibleFormat
	}

	// Serialize data.
	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return fmt.Errorf("dsd: failed to serialize: %w", err)
	}

	// Write data to response.
	w.Header().Set(httpHeaderContentType, mimeType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("dsd: failed to write response: %w", err)
	}
	return nil
}

// FormatFromAccept returns the first supported format listed in the given
// Accept header value, or AUTO if none matches.
func FormatFromAccept(accept string) SerializationFormat {
	for _, mimeType := range strings.Split(accept, ",") {
		format, ok := MimeTypeToFormat[extractMimeType(mimeType)]
		if ok {
			return format
		}
	}
	return AUTO
}

func extractMimeType(mimeType string) string {
	if strings.Contains(mimeType, ",") {
		mimeType = strings.SplitN(mimeType, ",", 2)[0]
	}
	if strings.Contains(mimeType, ";") {
		mimeType = strings.SplitN(mimeType, ";", 2)[0]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Format and MimeType mappings.
var (
	FormatToMimeType = map[SerializationFormat]string{
		JSON:    "application/json",
		CBOR:    "application/cbor",
		MsgPack: "application/msgpack",
		YAML:    "application/yaml",
	}
	MimeTypeToFormat = map[string]SerializationFormat{
		"application/json":    JSON,
		"text/json":           JSON,
		"application/cbor":    CBOR,
		"application/msgpack": MsgPack,
		"application/yaml":    YAML,
		"text/yaml":           YAML,
	}
)
