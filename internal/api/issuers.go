package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ─── Issuer registry endpoints ──────────────────────────────────────────────
//
// POST /api/issuers                     — register an issuer (registrar)
// GET  /api/issuers                     — list all issuers
// GET  /api/issuers/{addr}              — fetch one issuer
// POST /api/issuers/{addr}/deactivate   — deactivate (registrar)
// POST /api/issuers/{addr}/disclosure   — rotate disclosure hash

type registerIssuerRequest struct {
	Address        string `json:"address"`
	CredentialHash string `json:"credential_hash"`
	DisclosureHash string `json:"disclosure_hash"`
}

func (s *Server) handleRegisterIssuer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req registerIssuerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issuer, err := s.eng.RegisterIssuer(caller, req.Address, req.CredentialHash, req.DisclosureHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuer)
}

func (s *Server) handleListIssuers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.ListIssuers())
}

func (s *Server) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	issuer, err := s.eng.GetIssuer(chi.URLParam(r, "addr"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}

func (s *Server) handleDeactivateIssuer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	issuer, err := s.eng.DeactivateIssuer(caller, chi.URLParam(r, "addr"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}

type disclosureRequest struct {
	DisclosureHash string `json:"disclosure_hash"`
}

func (s *Server) handleUpdateDisclosure(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req disclosureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	addr := chi.URLParam(r, "addr")
	if err := s.eng.UpdateDisclosure(caller, addr, req.DisclosureHash); err != nil {
		writeDomainError(w, err)
		return
	}
	issuer, err := s.eng.GetIssuer(addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}
