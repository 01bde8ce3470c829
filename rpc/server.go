package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zapit-io/p2p-evmContract/core/types"
	"github.com/zapit-io/p2p-evmContract/crypto"
	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
	"github.com/zapit-io/p2p-evmContract/observability"
	"github.com/zapit-io/p2p-evmContract/observability/logging"
	"github.com/zapit-io/p2p-evmContract/state"
)

const maxRequestBody = 1 << 20

type contextKey string

const requestIDKey contextKey = "request_id"

// Server exposes the routed operations over HTTP. A single mutex serialises
// invocations: the execution model is one call at a time against the shared
// storage root.
type Server struct {
	log        *slog.Logger
	dispatcher *dispatch.Dispatcher
	state      *state.Manager
	mu         sync.Mutex
}

// NewServer constructs the HTTP front end for a dispatcher.
func NewServer(log *slog.Logger, dispatcher *dispatch.Dispatcher, st *state.Manager) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, dispatcher: dispatcher, state: st}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/invoke", s.handleInvoke)
	r.Get("/v1/modules", s.handleModules)
	r.Get("/v1/escrows/{id}", s.handleEscrow)
	r.Get("/v1/accounts/{address}", s.handleAccount)

	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type invokeResponse struct {
	Caller string         `json:"caller"`
	Nonce  uint64         `json:"nonce"`
	Result interface{}    `json:"result,omitempty"`
	Events []*types.Event `json:"events,omitempty"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req SignedRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, "malformed request body")
		return
	}
	if req.Operation == "" {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, "missing operation")
		return
	}

	caller, err := req.RecoverCaller()
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	value, err := req.AttachedValue()
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.state.GetAccount(caller)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, codeServerError, "account lookup failed")
		return
	}
	if req.Nonce != account.Nonce {
		s.writeError(w, r, http.StatusConflict, codeConflict, "invalid nonce")
		return
	}

	module := s.moduleFor(req.Operation)
	result, emitted, err := s.dispatcher.Invoke(req.Operation, &dispatch.Call{
		Caller: caller,
		Value:  value,
		Params: req.Params,
	})
	observability.Dispatch().ObserveRequest(module, req.Operation, time.Since(start), err)
	if err != nil {
		status, code := statusFor(err)
		s.log.Warn("operation rejected",
			slog.String("request_id", requestIDFrom(r)),
			slog.String("module", module),
			slog.String("operation", req.Operation),
			slog.String("error", err.Error()),
			logging.MaskField("signature", req.Signature),
		)
		s.writeError(w, r, status, code, err.Error())
		return
	}

	// Invoke committed the operation's effects, so the record read for the
	// nonce check is stale whenever the call moved the caller's own balance.
	// Reload before bumping the nonce.
	account, err = s.state.GetAccount(caller)
	if err == nil {
		account.Nonce++
		if err = s.state.PutAccount(caller, account); err == nil {
			err = s.state.Commit()
		}
	}
	if err != nil {
		s.state.Discard()
		s.writeError(w, r, http.StatusInternalServerError, codeServerError, "nonce update failed")
		return
	}

	for _, ev := range emitted {
		observability.Dispatch().RecordEvent(ev.Type)
	}
	s.log.Info("operation applied",
		slog.String("request_id", requestIDFrom(r)),
		slog.String("module", module),
		slog.String("operation", req.Operation),
	)
	s.writeJSON(w, http.StatusOK, invokeResponse{
		Caller: crypto.NewAddress(caller).String(),
		Nonce:  account.Nonce,
		Result: result,
		Events: emitted,
	})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	index, err := s.dispatcher.ListModules()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, codeServerError, "route index unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"modules": index})
}

func (s *Server) handleEscrow(w http.ResponseWriter, r *http.Request) {
	id, err := escrow.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, "invalid trade id")
		return
	}
	s.mu.Lock()
	trade, ok, err := escrow.LoadTrade(s.state, id)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, codeServerError, "trade lookup failed")
		return
	}
	if !ok {
		s.writeError(w, r, http.StatusNotFound, codeNotFound, escrow.ErrEscrowDoesNotExist.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, escrow.NewTradeResult(trade))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidParams, "invalid address")
		return
	}
	s.mu.Lock()
	account, aerr := s.state.GetAccount(addr.Bytes())
	s.mu.Unlock()
	if aerr != nil {
		s.writeError(w, r, http.StatusInternalServerError, codeServerError, "account lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr.String(),
		"nonce":   account.Nonce,
		"balance": account.Balance.String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	s.writeJSON(w, status, map[string]*APIError{"error": {Code: code, Message: message}})
}

func (s *Server) moduleFor(operation string) string {
	binding, ok, err := s.state.RouteGet(dispatch.OpIDFor(operation))
	if err != nil || !ok {
		return "unknown"
	}
	return binding.Module
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
