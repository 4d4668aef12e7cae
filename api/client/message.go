// Package client parses the messages of the API streams.
package client

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/safing/portsync/database/attr"
)

// Separator separates the parts of a message.
const Separator = "|"

var separatorBytes = []byte(Separator)

// Change stream message types. Event streams use the event name as type.
const (
	MsgUpdate = "upd"
	MsgDelete = "del"
)

// ErrMalformedMessage is returned for messages that cannot be parsed.
var ErrMalformedMessage = errors.New("malformed message")

// Message is a stream message.
//
//	<type>|<key>|<data>
type Message struct {
	Type    string
	Key     string
	RawData []byte
}

// ParseMessage parses a stream message.
func ParseMessage(data []byte) (*Message, error) {
	parts := bytes.SplitN(data, separatorBytes, 3)
	if len(parts) != 3 || len(parts[0]) == 0 {
		return nil, ErrMalformedMessage
	}

	return &Message{
		Type:    string(parts[0]),
		Key:     string(parts[1]),
		RawData: parts[2],
	}, nil
}

// Document parses the data of a message that carries a single document.
func (m *Message) Document() (*attr.Map, error) {
	return attr.ParseJSON(m.RawData)
}

// Documents parses the data of a message that carries a list of documents.
func (m *Message) Documents() ([]*attr.Map, error) {
	var docs []*attr.Map
	if err := json.Unmarshal(m.RawData, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
