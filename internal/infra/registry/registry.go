// Package registry implements issuer eligibility tracking.
//
// Each issuer carries a verifiable-credential hash, a disclosure document
// hash, and a one-campaign-at-a-time exclusivity lock. The lock, together
// with the last-campaign-year record, is the sole mechanism preventing an
// issuer from running two campaigns concurrently or more than once per
// calendar year.
//
// The registry has its own lock because exclusivity spans campaigns:
// two launches by the same issuer on different campaign ids must still
// serialize here.
package registry

import (
	"sync"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// Registry tracks issuer eligibility and exclusivity locks.
type Registry struct {
	mu      sync.RWMutex
	issuers map[string]*domain.Issuer
}

// New creates an empty issuer registry.
func New() *Registry {
	return &Registry{issuers: make(map[string]*domain.Issuer)}
}

// Register creates an issuer record. Fails with ErrDuplicateIssuer if the
// address is already registered (even if deactivated — records are never
// deleted).
func (r *Registry) Register(addr, credentialHash, disclosureHash string, now time.Time) (domain.Issuer, error) {
	if addr == "" {
		return domain.Issuer{}, domain.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issuers[addr]; ok {
		return domain.Issuer{}, domain.ErrDuplicateIssuer
	}
	iss := &domain.Issuer{
		Address:        addr,
		CredentialHash: credentialHash,
		DisclosureHash: disclosureHash,
		RegisteredAt:   now,
		Active:         true,
	}
	r.issuers[addr] = iss
	return *iss, nil
}

// Get returns a copy of the issuer record.
func (r *Registry) Get(addr string) (domain.Issuer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.Issuer{}, domain.ErrUnknownIssuer
	}
	return *iss, nil
}

// List returns copies of all issuer records.
func (r *Registry) List() []domain.Issuer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Issuer, 0, len(r.issuers))
	for _, iss := range r.issuers {
		out = append(out, *iss)
	}
	return out
}

// CanLaunch checks whether the issuer may take a campaign Live: registered,
// active, not exclusivity-locked, and no campaign launched this calendar
// year. Returns nil when eligible, otherwise the specific eligibility error.
func (r *Registry) CanLaunch(addr string, now time.Time) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.ErrUnknownIssuer
	}
	switch {
	case !iss.Active:
		return domain.ErrIssuerInactive
	case iss.Locked:
		return domain.ErrAlreadyLocked
	case iss.LastCampaignYear == now.Year():
		return domain.ErrIssuerNotEligible
	}
	return nil
}

// Lock sets the exclusivity lock for a campaign launch and records the
// campaign year. Fails with ErrAlreadyLocked if the lock is held.
func (r *Registry) Lock(addr, campaignID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.ErrUnknownIssuer
	}
	if !iss.Active {
		return domain.ErrIssuerInactive
	}
	if iss.Locked {
		return domain.ErrAlreadyLocked
	}
	iss.Locked = true
	iss.ActiveCampaign = campaignID
	iss.LastCampaignYear = now.Year()
	return nil
}

// Unlock clears the exclusivity lock. Called exactly once per campaign, at
// the terminal transition, never earlier.
func (r *Registry) Unlock(addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.ErrUnknownIssuer
	}
	if !iss.Locked {
		return domain.ErrNotLocked
	}
	iss.Locked = false
	iss.ActiveCampaign = ""
	return nil
}

// UpdateDisclosure replaces the disclosure document hash.
func (r *Registry) UpdateDisclosure(addr, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.ErrUnknownIssuer
	}
	if !iss.Active {
		return domain.ErrIssuerInactive
	}
	iss.DisclosureHash = newHash
	return nil
}

// Deactivate forcibly clears any lock and marks the issuer inactive.
// Administrative only; the record survives for audit.
func (r *Registry) Deactivate(addr string) (domain.Issuer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	iss, ok := r.issuers[addr]
	if !ok {
		return domain.Issuer{}, domain.ErrUnknownIssuer
	}
	iss.Active = false
	iss.Locked = false
	iss.ActiveCampaign = ""
	return *iss, nil
}

// Restore rebuilds registry state from persisted rows. Used at boot only.
func (r *Registry) Restore(rows []domain.Issuer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range rows {
		iss := rows[i]
		r.issuers[iss.Address] = &iss
	}
}
