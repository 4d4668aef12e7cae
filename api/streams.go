package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/tevino/abool"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/api/client"
	"github.com/safing/portsync/container"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/events"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/model"
)

const sendQueueSize = 100

// stream writes messages to a websocket connection.
//
//	<type>|<key>|<data>
type stream struct {
	conn      *websocket.Conn
	sendQueue chan []byte

	shutdownSignal chan struct{}
	shuttingDown   *abool.AtomicBool
}

func allowAnyOrigin(r *http.Request) bool {
	return true
}

func newStream() *stream {
	return &stream{
		sendQueue:      make(chan []byte, sendQueueSize),
		shutdownSignal: make(chan struct{}),
		shuttingDown:   abool.New(),
	}
}

func (st *stream) upgrade(w http.ResponseWriter, r *http.Request) error {
	upgrader := websocket.Upgrader{
		CheckOrigin:     allowAnyOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 65536,
	}
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client.
		return fmt.Errorf("could not upgrade to websocket: %w", err)
	}
	st.conn = wsConn
	return nil
}

// handleEvents streams the class events of a record type.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}

	// Hook in before upgrading, so that no event after the handshake is missed.
	st := newStream()
	hook := class.On(events.AnyEvent, "api event stream", func(event string, data interface{}) error {
		payload, err := eventPayload(data)
		if err != nil {
			log.Warningf("api: failed to serialize %s event of %s: %s", event, class.Name, err)
			return nil
		}
		st.send(event, class.Name, payload)
		return nil
	})

	if err := st.upgrade(w, r); err != nil {
		hook.Cancel()
		log.Warningf("api: %s", err)
		return
	}
	s.run(st, hook.Cancel)
}

// handleChanges streams the change feed of the database.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	db, err := adapter.Database()
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	st := newStream()
	sub := db.Subscribe()
	if err := st.upgrade(w, r); err != nil {
		sub.Cancel()
		log.Warningf("api: %s", err)
		return
	}

	go func() {
		for {
			select {
			case change, ok := <-sub.Feed:
				if !ok {
					st.shutdown()
					return
				}
				data, err := json.Marshal(change)
				if err != nil {
					log.Warningf("api: failed to serialize change of %s: %s", change.ID, err)
					continue
				}
				msgType := client.MsgUpdate
				if change.Deleted {
					msgType = client.MsgDelete
				}
				st.send(msgType, change.ID, data)
			case <-st.shutdownSignal:
				return
			}
		}
	}()
	s.run(st, sub.Cancel)
}

// run serves the stream until the connection is closed, then calls cleanup.
func (s *Server) run(st *stream, cleanup func()) {
	s.streamsLock.Lock()
	s.streams[st] = struct{}{}
	s.streamsLock.Unlock()

	go st.writer()
	st.reader()
	cleanup()

	s.streamsLock.Lock()
	delete(s.streams, st)
	s.streamsLock.Unlock()
}

func (st *stream) reader() {
	for {
		// Clients do not send anything, reading only detects the close.
		if _, _, err := st.conn.ReadMessage(); err != nil {
			if !st.shuttingDown.IsSet() {
				st.shutdown()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warningf("api: websocket read error: %s", err)
				}
			}
			return
		}
	}
}

func (st *stream) writer() {
	for {
		var data []byte
		select {
		case data = <-st.sendQueue:
		case <-st.shutdownSignal:
			return
		}

		err := st.conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			if !st.shuttingDown.IsSet() {
				st.shutdown()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warningf("api: websocket write error: %s", err)
				}
			}
			return
		}
	}
}

// send queues a message. Messages to slow clients are dropped.
func (st *stream) send(msgType, key string, data []byte) {
	c := container.New([]byte(msgType))
	c.Append([]byte(client.Separator + key + client.Separator))
	c.Append(data)

	select {
	case st.sendQueue <- c.CompileData():
	case <-st.shutdownSignal:
	default:
		log.Warningf("api: dropping %s message for %s, client too slow", msgType, key)
	}
}

func (st *stream) shutdown() {
	if st.shuttingDown.SetToIf(false, true) {
		close(st.shutdownSignal)
		_ = st.conn.Close()
	}
}

func eventPayload(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case []model.Record:
		docs := make([]*attr.Map, 0, len(v))
		for _, r := range v {
			docs = append(docs, RecordDocument(r))
		}
		return json.Marshal(docs)
	case model.Record:
		return json.Marshal(RecordDocument(v))
	case *adapter.Error:
		return json.Marshal(map[string]string{
			"kind":  v.Kind.String(),
			"id":    v.ID,
			"error": v.Error(),
		})
	default:
		return json.Marshal(data)
	}
}
