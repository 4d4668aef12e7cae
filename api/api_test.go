package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/api/client"
	"github.com/safing/portsync/model"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	require.NoError(t, adapter.Configure(adapter.Configuration{
		Name: fmt.Sprintf("api-test-%d", time.Now().UnixNano()),
	}))
	t.Cleanup(func() {
		assert.NoError(t, adapter.Reset())
	})

	srv := httptest.NewServer(NewServer(adapter.New(model.NewRegistry())).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader) //nolint:noctx
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil) //nolint:bodyclose
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *client.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := client.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestRecords(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)
	records := srv.URL + "/api/v1/records/Widget"

	// create
	status, body := do(t, http.MethodPost, records, `{"name": "Golden Cog", "part_number": 1337, "_rev": "9-bogus"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	id := gjson.GetBytes(body, "id").String()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, gjson.GetBytes(body, "_id").String())
	assert.Equal(t, "Widget", gjson.GetBytes(body, "rbtype").String())
	assert.Equal(t, int64(1337), gjson.GetBytes(body, "part_number").Int())
	rev1 := gjson.GetBytes(body, "_rev").String()
	assert.True(t, strings.HasPrefix(rev1, "1-"), rev1)

	// create with the same id
	status, body = do(t, http.MethodPost, records, fmt.Sprintf(`{"id": %q, "name": "Other Cog"}`, id))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", gjson.GetBytes(body, "kind").String())

	// find
	status, body = do(t, http.MethodGet, records+"/"+id, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Golden Cog", gjson.GetBytes(body, "name").String())

	// update
	status, body = do(t, http.MethodPut, records+"/"+id, `{"name": "Magic Cog"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Magic Cog", gjson.GetBytes(body, "name").String())
	rev2 := gjson.GetBytes(body, "_rev").String()
	assert.True(t, strings.HasPrefix(rev2, "2-"), rev2)

	// update with a stale revision
	status, body = do(t, http.MethodPut, records+"/"+id, fmt.Sprintf(`{"name": "Stale Cog", "_rev": %q}`, rev1))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Document update conflict", gjson.GetBytes(body, "error").String())

	// fetch
	status, body = do(t, http.MethodGet, records, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, int64(1), gjson.GetBytes(body, "#").Int())
	assert.Equal(t, id, gjson.GetBytes(body, "0.id").String())

	// other types are not included
	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/records/Violet", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	// type mismatch
	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/records/Violet/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "type_mismatch", gjson.GetBytes(body, "kind").String())

	// delete
	status, body = do(t, http.MethodDelete, records+"/"+id, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.True(t, gjson.GetBytes(body, "ok").Bool())

	status, body = do(t, http.MethodGet, records+"/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "missing", gjson.GetBytes(body, "error").String())
}

func TestBadRequests(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)
	records := srv.URL + "/api/v1/records/Widget"

	req, err := http.NewRequest(http.MethodPost, records, bytes.NewReader([]byte(`{}`))) //nolint:noctx
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, _ := do(t, http.MethodPost, records, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPut, records+"/widget-404", `{"name": "Ghost"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestContentNegotiation(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/api/v1/records/Widget", `{"id": "widget-1", "name": "Golden Cog"}`)
	require.Equal(t, http.StatusCreated, status)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/records/Widget/widget-1", nil) //nolint:noctx
	require.NoError(t, err)
	req.Header.Set("Accept", "application/yaml")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(data), "name: Golden Cog")
}

func TestEventStream(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)
	conn := dial(t, srv, "/api/v1/events/Widget")

	status, body := do(t, http.MethodPost, srv.URL+"/api/v1/records/Widget", `{"id": "widget-1", "name": "Golden Cog"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	msg := readMessage(t, conn)
	assert.Equal(t, model.EventChange, msg.Type)
	assert.Equal(t, "Widget", msg.Key)
	docs, err := msg.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "widget-1", docs[0].GetString("id"))

	status, _ = do(t, http.MethodGet, srv.URL+"/api/v1/records/Widget", "")
	require.Equal(t, http.StatusOK, status)
	msg = readMessage(t, conn)
	assert.Equal(t, model.EventRefresh, msg.Type)

	// Errors of collection operations are class events.
	status, _ = do(t, http.MethodGet, srv.URL+"/api/v1/records/Widget/widget-404", "")
	require.Equal(t, http.StatusNotFound, status)
	msg = readMessage(t, conn)
	assert.Equal(t, model.EventError, msg.Type)
	doc, err := msg.Document()
	require.NoError(t, err)
	assert.Equal(t, "not_found", doc.GetString("kind"))
	assert.Equal(t, "widget-404", doc.GetString("id"))
}

func TestChangeStream(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)
	conn := dial(t, srv, "/api/v1/changes")

	status, _ := do(t, http.MethodPost, srv.URL+"/api/v1/records/Widget", `{"id": "widget-1", "name": "Golden Cog"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = do(t, http.MethodDelete, srv.URL+"/api/v1/records/Widget/widget-1", "")
	require.Equal(t, http.StatusOK, status)

	msg := readMessage(t, conn)
	assert.Equal(t, client.MsgUpdate, msg.Type)
	assert.Equal(t, "widget-1", msg.Key)
	assert.True(t, strings.HasPrefix(gjson.GetBytes(msg.RawData, "Rev").String(), "1-"))

	msg = readMessage(t, conn)
	assert.Equal(t, client.MsgDelete, msg.Type)
	assert.True(t, gjson.GetBytes(msg.RawData, "Deleted").Bool())
}

func TestMetrics(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)

	status, _ := do(t, http.MethodGet, srv.URL+"/api/v1/records/Widget", "")
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `portsync_http_requests_total{route="/api/v1/records/{type}",status="200"}`)
	assert.Contains(t, string(body), `portsync_operations_total{op="fetch",result="ok"}`)
}

func TestInfo(t *testing.T) { //nolint:paralleltest
	srv := startTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/info", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"goVersion"`)
	assert.Contains(t, string(body), `"commit"`)
}

func TestServerLifecycle(t *testing.T) { //nolint:paralleltest
	startTestServer(t)
	s := NewServer(adapter.New(model.NewRegistry()))

	address, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)
	_, err = s.Start("127.0.0.1:0")
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	status, _ := do(t, http.MethodGet, "http://"+address+"/api/v1/records/Widget", "")
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.Stop(context.Background()), ErrNotStarted)
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	msg, err := client.ParseMessage([]byte(`upd|widget-1|{"a":"b|c"}`))
	require.NoError(t, err)
	assert.Equal(t, "upd", msg.Type)
	assert.Equal(t, "widget-1", msg.Key)
	assert.Equal(t, `{"a":"b|c"}`, string(msg.RawData))

	_, err = client.ParseMessage([]byte(`upd`))
	assert.ErrorIs(t, err, client.ErrMalformedMessage)
	_, err = client.ParseMessage([]byte(`|key|data`))
	assert.ErrorIs(t, err, client.ErrMalformedMessage)
}
