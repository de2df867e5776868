// Package rpcserver exposes a storageengine.Engine over HTTP using
// gorilla/mux, mirroring the router/middleware/routes split of a typical
// mux-based wallet server: one logging middleware wraps every route, and
// each handler is a thin JSON-decode/call/JSON-encode shim around an
// Engine method.
package rpcserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/graphd"
)

// Engine is the subset of *storageengine.Engine the server needs. Declaring
// it here rather than importing storageengine directly keeps the handlers
// testable against a fake.
type Engine interface {
	GetNeighbors(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error)
	GetProps(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error)
	AddVertices(req *graphd.AddVerticesRequest) (*graphd.MutateResponse, error)
	AddEdges(req *graphd.AddEdgesRequest) (*graphd.MutateResponse, error)
	UpdateVertex(req *graphd.UpdateVertexRequest) (*graphd.MutateResponse, error)
	UpdateEdge(req *graphd.UpdateEdgeRequest) (*graphd.MutateResponse, error)
}

// Server adapts an Engine onto the internal storage RPC surface.
type Server struct {
	engine Engine
	log    *logrus.Logger
}

// New builds a Server. If log is nil, logrus.StandardLogger() is used.
func New(engine Engine, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{engine: engine, log: log}
}

// Router returns a mux.Router with the logging middleware and every
// storage RPC route registered. Paths match internal/rpcclient's contract.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logging)
	r.HandleFunc("/storage/getNeighbors", s.handleGetNeighbors).Methods(http.MethodPost)
	r.HandleFunc("/storage/getProps", s.handleGetProps).Methods(http.MethodPost)
	r.HandleFunc("/storage/addVertices", s.handleAddVertices).Methods(http.MethodPost)
	r.HandleFunc("/storage/addEdges", s.handleAddEdges).Methods(http.MethodPost)
	r.HandleFunc("/storage/updateVertex", s.handleUpdateVertex).Methods(http.MethodPost)
	r.HandleFunc("/storage/updateEdge", s.handleUpdateEdge).Methods(http.MethodPost)
	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start),
		}).Info("rpcserver: handled request")
	})
}

func decode[T any](r *http.Request) (*T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, log *logrus.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("rpcserver: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, log *logrus.Logger, err error) {
	log.WithError(err).Warn("rpcserver: request failed")
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) handleGetNeighbors(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.GetNeighborsRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.GetNeighbors(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

func (s *Server) handleGetProps(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.GetPropsRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.GetProps(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

func (s *Server) handleAddVertices(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.AddVerticesRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.AddVertices(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

func (s *Server) handleAddEdges(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.AddEdgesRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.AddEdges(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

func (s *Server) handleUpdateVertex(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.UpdateVertexRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.UpdateVertex(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

func (s *Server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	req, err := decode[graphd.UpdateEdgeRequest](r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := s.engine.UpdateEdge(req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}
