// Package web provides the HTTP monitor page for the room-sensor daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/room-sensor/internal/dht"
	"github.com/sweeney/room-sensor/internal/status"
)

// Reader is the sensor boundary the web layer drives: one read transaction
// per inbound request.
type Reader interface {
	Read() (dht.Reading, error)
}

// Server serves the monitor page over HTTP.
type Server struct {
	httpServer *http.Server
	sensor     Reader
	tracker    *status.Tracker
}

// New creates a Server that reads the sensor through the given Reader and
// shared state from the tracker.
func New(addr string, sensor Reader, tracker *status.Tracker) *Server {
	s := &Server{sensor: sensor, tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// refresh performs one sensor read and folds the result into the tracker.
// A failed read is reported, not fatal: the page falls back to an error
// indication and the daemon keeps serving.
func (s *Server) refresh() (status.Snapshot, string) {
	reading, err := s.sensor.Read()
	if err != nil {
		kind := dht.Kind(err)
		log.Printf("web: sensor read failed: %v", err)
		s.tracker.SetReadError(kind)
		return s.tracker.Snapshot(), kind
	}
	s.tracker.SetReading(reading, time.Now())
	return s.tracker.Snapshot(), ""
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap, failKind := s.refresh()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, failKind)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.refresh()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
