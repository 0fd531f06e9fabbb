package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"recharge-platform/internal/infra/logging"
	"recharge-platform/internal/usecase"
)

// Server exposes the operator surface: code import, the pending-delivery
// queue and manual assignment. Everything else (CRM, plan CRUD, UI) is owned
// by the surrounding application.
type Server struct {
	inventoryUC usecase.InventoryUseCase
	saleUC      usecase.SaleUseCase
	apiKey      string // bootstrap credential exchanged for a session at login
	auth        *AuthManager
	log         *zerolog.Logger
}

func NewServer(inventoryUC usecase.InventoryUseCase, saleUC usecase.SaleUseCase, apiKey string, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{
		inventoryUC: inventoryUC,
		saleUC:      saleUC,
		apiKey:      apiKey,
		auth:        auth,
		log:         logger,
	}
}

// Router builds the chi router for the admin API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/codes/import", s.handleImportCodes)
			r.Get("/plans/{planID}/inventory", s.handleInventoryCounts)
			r.Post("/sales", s.handleSell)
			r.Get("/purchases/pending", s.handleListPending)
			r.Post("/purchases/{purchaseID}/assign", s.handleAssignCode)
		})
	})

	return r
}

// traceMiddleware tags each request context with a trace id so use-case logs
// for one request can be correlated.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Key string `json:"key"`
}

// handleLogin exchanges the configured admin key for a session: the JWT is
// set as a cookie for browsers and echoed in the body for API clients.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" {
		s.log.Error().Msg("admin api key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.apiKey)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
