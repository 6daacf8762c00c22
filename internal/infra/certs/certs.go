// Package certs implements non-transferable share certificates.
//
// Certificates are derived data: issued only from a successful campaign's
// final investor snapshot, one per (campaign, investor) pair with nonzero
// investment. Re-invoking issuance for a campaign never duplicates
// certificates. There is no transfer operation — compliance-bound shares
// move only through the administrative revoke + reissue path, and every
// ownership change lands in the transfer history.
package certs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fundra-network/fundra/internal/domain"
)

// Config controls share and voting math.
type Config struct {
	ShareScale int64  // shareCount = amount × ShareScale / goal
	VotingUnit int64  // one vote per VotingUnit invested, floor 1
	URIBase    string // prefix for certificate token URIs
}

// DefaultConfig returns the platform defaults: basis-point-like share
// allocation and one vote per 1,000 units.
func DefaultConfig() Config {
	return Config{
		ShareScale: 1_000,
		VotingUnit: 1_000,
		URIBase:    "https://certificates.fundra.network/",
	}
}

// Holding is one investor's final accumulated investment in a campaign.
type Holding struct {
	Investor string
	Amount   int64
}

// Book is the certificate register.
type Book struct {
	mu         sync.RWMutex
	cfg        Config
	byToken    map[string]*domain.ShareCertificate
	byCampaign map[string]map[string]string // campaign → investor → token id
	history    []domain.CertificateTransfer
}

// New creates an empty certificate book.
func New(cfg Config) *Book {
	return &Book{
		cfg:        cfg,
		byToken:    make(map[string]*domain.ShareCertificate),
		byCampaign: make(map[string]map[string]string),
	}
}

// IssueAll mints one certificate per holder with a nonzero investment.
// Idempotent: holders already certificated for this campaign are skipped, so
// the returned slice contains only newly issued certificates.
func (b *Book) IssueAll(c domain.Campaign, holdings []Holding, now time.Time) ([]domain.ShareCertificate, error) {
	if c.ID == "" {
		return nil, domain.ErrEmptyID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	issued := b.byCampaign[c.ID]
	if issued == nil {
		issued = make(map[string]string)
		b.byCampaign[c.ID] = issued
	}

	var out []domain.ShareCertificate
	for _, h := range holdings {
		if h.Amount <= 0 {
			continue
		}
		if _, ok := issued[h.Investor]; ok {
			continue
		}
		tokenID := uuid.NewString()
		cert := &domain.ShareCertificate{
			TokenID:          tokenID,
			CampaignID:       c.ID,
			CompanyName:      c.CompanyName,
			Owner:            h.Investor,
			InvestmentAmount: h.Amount,
			ShareCount:       domain.ShareCount(h.Amount, c.Goal, b.cfg.ShareScale),
			VotingPower:      domain.VotingPower(h.Amount, b.cfg.VotingUnit),
			TokenURI:         b.cfg.URIBase + tokenID,
			IssuedAt:         now,
			Active:           true,
		}
		b.byToken[tokenID] = cert
		issued[h.Investor] = tokenID
		out = append(out, *cert)
	}
	return out, nil
}

// Get returns a copy of a certificate.
func (b *Book) Get(tokenID string) (domain.ShareCertificate, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.byToken[tokenID]
	if !ok {
		return domain.ShareCertificate{}, domain.ErrUnknownCertificate
	}
	return *c, nil
}

// ByCampaign returns all certificates for a campaign.
func (b *Book) ByCampaign(campaignID string) []domain.ShareCertificate {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []domain.ShareCertificate
	for _, tokenID := range b.byCampaign[campaignID] {
		out = append(out, *b.byToken[tokenID])
	}
	return out
}

// ByOwner returns all certificates held by an owner.
func (b *Book) ByOwner(owner string) []domain.ShareCertificate {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []domain.ShareCertificate
	for _, c := range b.byToken {
		if c.Owner == owner {
			out = append(out, *c)
		}
	}
	return out
}

// Transfer always rejects: share certificates are compliance-bound and
// non-transferable.
func (b *Book) Transfer(tokenID, from, to string) error {
	return domain.ErrNotTransferable
}

// Revoke deactivates a certificate. Administrative only.
func (b *Book) Revoke(tokenID, reason string, now time.Time) (domain.ShareCertificate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.byToken[tokenID]
	if !ok {
		return domain.ShareCertificate{}, domain.ErrUnknownCertificate
	}
	if !c.Active {
		return domain.ShareCertificate{}, domain.ErrCertificateRevoked
	}
	c.Active = false
	b.history = append(b.history, domain.CertificateTransfer{
		TokenID: tokenID,
		From:    c.Owner,
		To:      "",
		Reason:  reason,
		At:      now,
	})
	return *c, nil
}

// Reissue revokes a certificate and mints a replacement for a new owner with
// identical share and voting figures. This is the only ownership-change
// path.
func (b *Book) Reissue(tokenID, newOwner, reason string, now time.Time) (domain.ShareCertificate, error) {
	if newOwner == "" {
		return domain.ShareCertificate{}, domain.ErrZeroAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	old, ok := b.byToken[tokenID]
	if !ok {
		return domain.ShareCertificate{}, domain.ErrUnknownCertificate
	}
	if !old.Active {
		return domain.ShareCertificate{}, domain.ErrCertificateRevoked
	}
	old.Active = false

	newID := uuid.NewString()
	cert := &domain.ShareCertificate{
		TokenID:          newID,
		CampaignID:       old.CampaignID,
		CompanyName:      old.CompanyName,
		Owner:            newOwner,
		InvestmentAmount: old.InvestmentAmount,
		ShareCount:       old.ShareCount,
		VotingPower:      old.VotingPower,
		TokenURI:         b.cfg.URIBase + newID,
		IssuedAt:         now,
		Active:           true,
	}
	b.byToken[newID] = cert
	if m := b.byCampaign[old.CampaignID]; m != nil {
		m[newOwner] = newID
	}
	b.history = append(b.history, domain.CertificateTransfer{
		TokenID: newID,
		From:    old.Owner,
		To:      newOwner,
		Reason:  reason,
		At:      now,
	})
	return *cert, nil
}

// History returns the full ownership-change log.
func (b *Book) History() []domain.CertificateTransfer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.CertificateTransfer, len(b.history))
	copy(out, b.history)
	return out
}

// Restore rebuilds the book from persisted rows. Used at boot only.
func (b *Book) Restore(certificates []domain.ShareCertificate, history []domain.CertificateTransfer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range certificates {
		c := certificates[i]
		b.byToken[c.TokenID] = &c
		m := b.byCampaign[c.CampaignID]
		if m == nil {
			m = make(map[string]string)
			b.byCampaign[c.CampaignID] = m
		}
		if c.Active {
			m[c.Owner] = c.TokenID
		} else if _, ok := m[c.Owner]; !ok {
			m[c.Owner] = c.TokenID
		}
	}
	b.history = append(b.history, history...)
}
