// Package server is the HTTP surface of the wallet bridge: the
// game-provider action endpoint, the transaction read endpoint, and
// health.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/config"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/dispatch"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/txstore"
)

// recentLimit matches the historical read endpoint: last 100 records.
const recentLimit = 100

type RecentStore interface {
	Recent(ctx context.Context, limit int) ([]txstore.Transaction, error)
}

type Server struct {
	cfg        *config.Config
	log        *zap.Logger
	dispatcher *dispatch.Dispatcher
	store      RecentStore
}

func New(cfg *config.Config, log *zap.Logger, dispatcher *dispatch.Dispatcher, store RecentStore) *Server {
	return &Server{
		cfg:        cfg,
		log:        log,
		dispatcher: dispatcher,
		store:      store,
	}
}

// Handler builds the route table with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/game-provider", s.handleGameProvider)
	mux.HandleFunc("GET /transactions", s.handleTransactions)
	return cors(s.requestLogger(mux))
}

func (s *Server) Run() error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8080
	}
	addr := ":" + strconv.Itoa(port)
	s.log.Info("wallet bridge listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// requestLogger logs method and path for each request (no body or secrets).
func (s *Server) requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "wallet-bridge"})
}

// handleGameProvider accepts a wallet action, dispatches it, and relays
// the upstream wallet's response body verbatim.
func (s *Server) handleGameProvider(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	body, err := s.dispatcher.Dispatch(r.Context(), &req)
	if err != nil {
		var derr *dispatch.Error
		if errors.As(err, &derr) {
			writeError(w, derr.Status, derr.Message, derr.Fields)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type transactionsResponse struct {
	Success bool                  `json:"success"`
	Data    []txstore.Transaction `json:"data"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Recent(r.Context(), recentLimit)
	if err != nil {
		s.log.Error("list transactions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}
	if records == nil {
		records = []txstore.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Success: true, Data: records})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
