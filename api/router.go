// Package api exposes the records of an adapter over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/tevino/abool"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/info"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/metrics"
)

// Server serves the records of an adapter.
type Server struct {
	adapter *adapter.Adapter
	router  *mux.Router

	server     *http.Server
	serverLock sync.Mutex
	running    *abool.AtomicBool

	streams     map[*stream]struct{}
	streamsLock sync.Mutex
}

// NewServer returns a server for the records of a.
func NewServer(a *adapter.Adapter) *Server {
	s := &Server{
		adapter: a,
		router:  mux.NewRouter(),
		running: abool.New(),
		streams: make(map[*stream]struct{}),
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/records/{type}", s.handleFetch).Methods(http.MethodGet)
	api.HandleFunc("/records/{type}", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/records/{type}/{id}", s.handleFind).Methods(http.MethodGet)
	api.HandleFunc("/records/{type}/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/records/{type}/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/events/{type}", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/changes", s.handleChanges).Methods(http.MethodGet)
	api.HandleFunc("/info", handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", handleMetrics).Methods(http.MethodGet)

	s.router.Use(RequestLogger)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RequestLogger is a logging middleware.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ew := NewEnrichedResponseWriter(w)
		next.ServeHTTP(ew, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		metrics.HTTPRequest(route, ew.Status, start)
		log.Infof("api request: %s %d %s %s", r.RemoteAddr, ew.Status, r.Method, r.RequestURI)
	})
}

// Start starts listening on address in the background and returns the
// address that is listened on.
func (s *Server) Start(address string) (string, error) {
	if !s.running.SetToIf(false, true) {
		return "", ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		s.running.UnSet()
		return "", err
	}

	s.serverLock.Lock()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.server
	s.serverLock.Unlock()

	log.Infof("api: starting to listen on %s", listener.Addr())
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("api: failed to serve on %s: %s", listener.Addr(), err)
		}
	}()
	return listener.Addr().String(), nil
}

// Stop shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.SetToIf(true, false) {
		return ErrNotStarted
	}

	// Hijacked websocket connections are not closed by the http server.
	s.streamsLock.Lock()
	for st := range s.streams {
		st.shutdown()
	}
	s.streamsLock.Unlock()

	s.serverLock.Lock()
	defer s.serverLock.Unlock()

	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

func handleInfo(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, info.GetInfo())
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
