// Package api exposes a minimal read-only operational HTTP surface over
// the snapshot store: health, head, and single-section lookups. The full
// read-only API serving a user interface is explicitly out of scope; this
// is an operator/debug surface only.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

// Server wraps a gorilla/mux router over the snapshot store.
type Server struct {
	store  *postgres.Store
	logger *logging.Logger
	router *mux.Router
}

func NewServer(store *postgres.Store, logger *logging.Logger) *Server {
	s := &Server{store: store, logger: logger.With("api"), router: mux.NewRouter()}
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/head", s.handleHead).Methods(http.MethodGet)
	s.router.HandleFunc("/section/{title}/{section}", s.handleSection).Methods(http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	head, err := s.store.Head(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, head)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	title, err := strconv.Atoi(vars["title"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	head, err := s.store.Head(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	key := model.SectionKey{TitleNumber: title, SectionNumber: vars["section"]}
	snap, err := s.store.GetSectionAt(r.Context(), head.RevisionID, key)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", logging.Fields{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
