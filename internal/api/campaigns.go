package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fundra-network/fundra/internal/domain"
	"github.com/fundra-network/fundra/internal/infra/ledger"
)

// ─── Campaign lifecycle endpoints ───────────────────────────────────────────

type createCampaignRequest struct {
	ID            string `json:"id,omitempty"` // generated when empty
	Issuer        string `json:"issuer"`
	CompanyName   string `json:"company_name"`
	MetadataRef   string `json:"metadata_ref"`
	Goal          int64  `json:"goal"`
	MinInvestment int64  `json:"min_investment"`
	MaxInvestment int64  `json:"max_investment"`
	DurationDays  int    `json:"duration_days"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	c, err := s.eng.CreateCampaign(caller, ledger.CreateParams{
		ID:            req.ID,
		Issuer:        req.Issuer,
		CompanyName:   req.CompanyName,
		MetadataRef:   req.MetadataRef,
		Goal:          req.Goal,
		MinInvestment: req.MinInvestment,
		MaxInvestment: req.MaxInvestment,
		Duration:      time.Duration(req.DurationDays) * 24 * time.Hour,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns := s.eng.ListCampaigns()
	if state := r.URL.Query().Get("state"); state != "" {
		filtered := campaigns[:0]
		for _, c := range campaigns {
			if string(c.State) == state {
				filtered = append(filtered, c)
			}
		}
		campaigns = filtered
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.eng.GetCampaign(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleLaunchCampaign(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	c, err := s.eng.LaunchCampaign(caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type investRequest struct {
	Investor      string `json:"investor"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentRef    string `json:"payment_ref"`
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req investRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = domain.PayOther
	}

	inv, err := s.eng.Invest(caller, chi.URLParam(r, "id"), req.Investor, req.Amount, method, req.PaymentRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleCheckCompletion(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	tr, err := s.eng.CheckCompletion(caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"changed": tr.Changed,
		"from":    tr.From,
		"to":      tr.To,
	})
}

// ─── Campaign read endpoints ────────────────────────────────────────────────

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	log, err := s.eng.InvestmentLog(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleInvestors(w http.ResponseWriter, r *http.Request) {
	investors, err := s.eng.Investors(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investors)
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	acct, err := s.eng.GetEscrow(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleRefundLines(w http.ResponseWriter, r *http.Request) {
	lines, err := s.eng.RefundLines(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleGetStake(w http.ResponseWriter, r *http.Request) {
	stake, err := s.eng.GetStake(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stake)
}
