package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/formats/dsd"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/model"
)

// RecordDocument returns the flat document view of r: its attributes, the
// store metadata and the identifier alias.
func RecordDocument(r model.Record) *attr.Map {
	attributes, _ := document.Split(r.AsPlainObject())
	meta := r.Meta()
	if meta == nil {
		meta = &document.Meta{ID: r.ID()}
	}
	return document.Merge(attributes, meta)
}

func (s *Server) class(w http.ResponseWriter, r *http.Request) (*model.Class, bool) {
	class, err := s.adapter.Registry().Ensure(mux.Vars(r)["type"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	return class, true
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}

	records, err := s.adapter.Fetch(class.Name, nil).WaitContext(r.Context())
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}

	docs := make([]*attr.Map, 0, len(records))
	for _, record := range records {
		docs = append(docs, RecordDocument(record))
	}
	respond(w, r, http.StatusOK, docs)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}

	record, err := s.adapter.Find(class.Name, mux.Vars(r)["id"], nil).WaitContext(r.Context())
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, RecordDocument(record))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}

	body := attr.NewMap()
	if _, err := dsd.LoadFromHTTPRequest(r, body); err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return
	}

	// Only the identifier is taken from the body, store metadata is assigned.
	attributes, meta := document.Split(body)
	record := class.New()
	record.Load(document.Merge(attributes, &document.Meta{ID: meta.ID}))

	created, err := s.adapter.Create(record, nil).WaitContext(r.Context())
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, RecordDocument(created))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}

	body := attr.NewMap()
	if _, err := dsd.LoadFromHTTPRequest(r, body); err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return
	}

	record, err := s.record(r, class, mux.Vars(r)["id"])
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}

	attributes, meta := document.Split(body)
	var setErr error
	attributes.Range(func(name string, v attr.Value) bool {
		setErr = record.Set(name, v)
		return setErr == nil
	})
	if setErr != nil {
		respondError(w, r, http.StatusBadRequest, setErr)
		return
	}

	// A revision in the body is checked by the store.
	previous := record.Meta()
	if meta.Rev != "" {
		current := record.Meta()
		current.Rev = meta.Rev
		record.SetMeta(current)
	}

	updated, err := s.adapter.Update(record, nil).WaitContext(r.Context())
	if err != nil {
		if meta.Rev != "" && !errors.Is(err, r.Context().Err()) {
			record.SetMeta(previous)
		}
		respondAdapterError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, RecordDocument(updated))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	record, err := s.record(r, class, id)
	if err != nil {
		respondAdapterError(w, r, err)
		return
	}
	previous := record.Meta()
	rev := r.URL.Query().Get("rev")
	if rev != "" {
		current := record.Meta()
		current.Rev = rev
		record.SetMeta(current)
	}

	if _, err := s.adapter.Delete(record, nil).WaitContext(r.Context()); err != nil {
		if rev != "" && !errors.Is(err, r.Context().Err()) {
			record.SetMeta(previous)
		}
		respondAdapterError(w, r, err)
		return
	}

	result := attr.NewMap()
	result.Set("ok", attr.BoolValue(true))
	result.Set("id", attr.StringValue(id))
	respond(w, r, http.StatusOK, result)
}

// record returns the known record with the given id, or loads it.
func (s *Server) record(r *http.Request, class *model.Class, id string) (model.Record, error) {
	if known, ok := class.Lookup(id); ok && !known.IsNew() {
		return known, nil
	}
	return s.adapter.Load(class.New(), id, nil).WaitContext(r.Context())
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := dsd.DumpToHTTPResponse(w, r, data, status, dsd.JSON); err != nil {
		log.Warningf("api: failed to write response to %s: %s", r.RemoteAddr, err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := attr.NewMap()
	body.Set("error", attr.StringValue(err.Error()))

	var adapterErr *adapter.Error
	if errors.As(err, &adapterErr) {
		body.Set("kind", attr.StringValue(adapterErr.Kind.String()))
	}
	respond(w, r, status, body)
}

func respondAdapterError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var adapterErr *adapter.Error
	switch {
	case errors.Is(err, model.ErrUnknownClass):
		status = http.StatusNotFound
	case errors.As(err, &adapterErr):
		switch adapterErr.Kind {
		case adapter.KindNotFound, adapter.KindTypeMismatch:
			status = http.StatusNotFound
		case adapter.KindStoreConflict:
			status = http.StatusConflict
		case adapter.KindTransportFailure:
		}
	case errors.Is(err, r.Context().Err()):
		status = http.StatusServiceUnavailable
		err = fmt.Errorf("request cancelled: %w", err)
	}
	respondError(w, r, status, err)
}
