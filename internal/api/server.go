// Package api provides the HTTP server for Fundra.
// It exposes the issuer registry, campaign ledger, escrow settlement,
// and certificate endpoints, plus a live event feed over SSE.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fundra-network/fundra/internal/app/engine"
	"github.com/fundra-network/fundra/internal/domain"
)

// Version is the API version reported by /api/version.
const Version = "0.1.0"

// Server is the Fundra HTTP API server.
type Server struct {
	eng            *engine.Engine
	keys           map[string]string // bearer key -> role name
	metricsEnabled bool
}

// NewServer creates a new API server around the funding engine.
func NewServer(eng *engine.Engine) *Server {
	return &Server{eng: eng, keys: map[string]string{}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetKeys installs the bearer-key to role map. Mutating endpoints refuse
// callers whose key is missing from the map.
func (s *Server) SetKeys(keys map[string]string) {
	if keys == nil {
		keys = map[string]string{}
	}
	s.keys = keys
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/api/issuers", func(r chi.Router) {
		r.Get("/", s.handleListIssuers)
		r.Post("/", s.handleRegisterIssuer)
		r.Get("/{addr}", s.handleGetIssuer)
		r.Post("/{addr}/deactivate", s.handleDeactivateIssuer)
		r.Post("/{addr}/disclosure", s.handleUpdateDisclosure)
	})

	r.Route("/api/campaigns", func(r chi.Router) {
		r.Get("/", s.handleListCampaigns)
		r.Post("/", s.handleCreateCampaign)
		r.Get("/{id}", s.handleGetCampaign)
		r.Post("/{id}/launch", s.handleLaunchCampaign)
		r.Post("/{id}/invest", s.handleInvest)
		r.Post("/{id}/check", s.handleCheckCompletion)
		r.Post("/{id}/release", s.handleRelease)
		r.Post("/{id}/refund", s.handleRefund)
		r.Post("/{id}/certificates", s.handleIssueCertificates)
		r.Get("/{id}/certificates", s.handleCampaignCertificates)
		r.Get("/{id}/investments", s.handleInvestments)
		r.Get("/{id}/investors", s.handleInvestors)
		r.Get("/{id}/escrow", s.handleGetEscrow)
		r.Get("/{id}/refunds", s.handleRefundLines)
		r.Get("/{id}/stake", s.handleGetStake)
		r.Get("/{id}/events", s.handleCampaignEvents)
	})

	r.Route("/api/certificates", func(r chi.Router) {
		r.Get("/", s.handleListCertificates)
		r.Get("/transfers", s.handleCertificateTransfers)
		r.Get("/{tokenID}", s.handleGetCertificate)
		r.Post("/{tokenID}/revoke", s.handleRevokeCertificate)
		r.Post("/{tokenID}/reissue", s.handleReissueCertificate)
	})

	r.Get("/api/events", s.handleRecentEvents)
	r.Get("/api/events/live", s.handleEventsSSE)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Authentication ─────────────────────────────────────────────────────────

// caller resolves the request's bearer key to a role and pairs it with the
// X-Caller-Address header. A false return means the response is written.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return domain.Caller{}, false
	}
	role, ok := s.keys[strings.TrimPrefix(auth, "Bearer ")]
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown api key")
		return domain.Caller{}, false
	}
	return domain.Caller{
		Addr: r.Header.Get("X-Caller-Address"),
		Role: domain.Role(role),
	}, true
}

// ─── Error mapping ──────────────────────────────────────────────────────────

// statusFor maps domain errors onto HTTP status codes. Validation failures
// are 400, unknown entities 404, authorization 403, transfer failures 502,
// and every remaining lifecycle conflict 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownCampaign),
		errors.Is(err, domain.ErrUnknownIssuer),
		errors.Is(err, domain.ErrUnknownStake),
		errors.Is(err, domain.ErrUnknownEscrow),
		errors.Is(err, domain.ErrUnknownCertificate):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrZeroAddress),
		errors.Is(err, domain.ErrEmptyID),
		errors.Is(err, domain.ErrInvalidGoal),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvestmentTooSmall),
		errors.Is(err, domain.ErrInvestmentTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPayoutFailed):
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// ─── JSON helpers ───────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// decodeJSON parses the request body into v. A false return means the
// response is written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// corsMiddleware adds CORS headers for the web dashboard.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Caller-Address")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
