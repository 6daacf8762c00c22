package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ─── Settlement and certificate endpoints ───────────────────────────────────

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	res, err := s.eng.Release(caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	res, err := s.eng.Refund(caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIssueCertificates(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	issued, err := s.eng.IssueCertificates(caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issued)
}

func (s *Server) handleCampaignCertificates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Certificates(chi.URLParam(r, "id")))
}

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, s.eng.CertificatesByOwner(owner))
}

func (s *Server) handleCertificateTransfers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.CertificateHistory())
}

func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.eng.GetCertificate(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req revokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cert, err := s.eng.RevokeCertificate(caller, chi.URLParam(r, "tokenID"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

type reissueRequest struct {
	NewOwner string `json:"new_owner"`
	Reason   string `json:"reason"`
}

func (s *Server) handleReissueCertificate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req reissueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cert, err := s.eng.ReissueCertificate(caller, chi.URLParam(r, "tokenID"), req.NewOwner, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}
