// Package yieldpool implements per-campaign staking of escrowed funds.
//
// One stake per campaign: the first escrow deposit opens the position and
// later deposits top it up, bounding the book-keeping cost per campaign.
// Compounding only advances in whole periods — repeated calls between period
// boundaries are no-ops, which keeps the operation idempotent and avoids
// rounding drift from partial periods.
//
// The rate model is an annual rate in basis points divided linearly across
// the periods in a year. This is an accounting abstraction over whatever
// external yield mechanism is plugged in; it makes no claim about real-world
// yield source correctness.
package yieldpool

import (
	"sync"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// Config controls pool availability and the rate model.
type Config struct {
	Active            bool
	BaseRateBP        int64         // annual yield rate in basis points
	CompoundingPeriod time.Duration // whole-period compounding granularity
}

// DefaultConfig returns a 5% annual rate compounded daily.
func DefaultConfig() Config {
	return Config{
		Active:            true,
		BaseRateBP:        500,
		CompoundingPeriod: 24 * time.Hour,
	}
}

// Pool manages one stake per campaign.
type Pool struct {
	mu             sync.RWMutex
	cfg            Config
	periodsPerYear int64
	stakes         map[string]*domain.Stake
}

// New creates a pool. A non-positive compounding period disables accrual by
// treating the pool as inactive.
func New(cfg Config) *Pool {
	p := &Pool{cfg: cfg, stakes: make(map[string]*domain.Stake)}
	if cfg.CompoundingPeriod > 0 {
		p.periodsPerYear = int64((365 * 24 * time.Hour) / cfg.CompoundingPeriod)
	}
	if p.periodsPerYear == 0 {
		p.cfg.Active = false
	}
	return p
}

// Active reports whether the pool accepts stakes.
func (p *Pool) Active() bool { return p.cfg.Active }

// Stake opens the position for a campaign.
func (p *Pool) Stake(campaignID string, amount int64, now time.Time) (domain.Stake, error) {
	if !p.cfg.Active {
		return domain.Stake{}, domain.ErrPoolInactive
	}
	if campaignID == "" {
		return domain.Stake{}, domain.ErrEmptyID
	}
	if amount <= 0 {
		return domain.Stake{}, domain.ErrZeroAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.stakes[campaignID]; ok {
		return domain.Stake{}, domain.ErrDuplicateStake
	}
	s := &domain.Stake{
		CampaignID:      campaignID,
		Principal:       amount,
		StakeTime:       now,
		LastCompoundKey: now,
	}
	p.stakes[campaignID] = s
	return *s, nil
}

// TopUp adds principal to an open stake. Accrual up to now is settled first
// so the new principal only earns from the current period onward.
func (p *Pool) TopUp(campaignID string, amount int64, now time.Time) (domain.Stake, error) {
	if amount <= 0 {
		return domain.Stake{}, domain.ErrZeroAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stakes[campaignID]
	if !ok {
		return domain.Stake{}, domain.ErrUnknownStake
	}
	if s.Harvested {
		return domain.Stake{}, domain.ErrAlreadyHarvested
	}
	p.compound(s, now)
	s.Principal += amount
	return *s, nil
}

// Compound settles whole elapsed periods into accrued yield. Returns the
// number of periods applied and the yield added; both are zero between
// period boundaries.
func (p *Pool) Compound(campaignID string, now time.Time) (int64, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stakes[campaignID]
	if !ok {
		return 0, 0, domain.ErrUnknownStake
	}
	if s.Harvested {
		return 0, 0, domain.ErrAlreadyHarvested
	}
	periods, added := p.compound(s, now)
	return periods, added, nil
}

// compound applies whole-period accrual in place. Caller holds the lock.
func (p *Pool) compound(s *domain.Stake, now time.Time) (int64, int64) {
	elapsed := now.Sub(s.LastCompoundKey)
	if elapsed < p.cfg.CompoundingPeriod {
		return 0, 0
	}
	periods := int64(elapsed / p.cfg.CompoundingPeriod)

	var added int64
	for i := int64(0); i < periods; i++ {
		periodYield := (s.Principal + s.YieldAccrued) * p.cfg.BaseRateBP / 10_000 / p.periodsPerYear
		s.YieldAccrued += periodYield
		added += periodYield
	}
	// advance by whole periods only, never partial
	s.LastCompoundKey = s.LastCompoundKey.Add(time.Duration(periods) * p.cfg.CompoundingPeriod)
	return periods, added
}

// Harvest performs a final compound, marks the stake terminal, and returns
// the principal and accrued yield. One-shot per campaign.
func (p *Pool) Harvest(campaignID string, now time.Time) (principal, yield int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stakes[campaignID]
	if !ok {
		return 0, 0, domain.ErrUnknownStake
	}
	if s.Harvested {
		return 0, 0, domain.ErrAlreadyHarvested
	}
	p.compound(s, now)
	s.Harvested = true
	return s.Principal, s.YieldAccrued, nil
}

// Get returns a copy of the stake.
func (p *Pool) Get(campaignID string) (domain.Stake, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.stakes[campaignID]
	if !ok {
		return domain.Stake{}, domain.ErrUnknownStake
	}
	return *s, nil
}

// Has reports whether a stake exists for the campaign (harvested or not).
func (p *Pool) Has(campaignID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.stakes[campaignID]
	return ok
}

// OpenIDs returns the campaign ids of unharvested stakes, for the
// compounding tick.
func (p *Pool) OpenIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for id, s := range p.stakes {
		if !s.Harvested {
			out = append(out, id)
		}
	}
	return out
}

// Restore rebuilds pool state from persisted rows. Used at boot only.
func (p *Pool) Restore(rows []domain.Stake) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range rows {
		s := rows[i]
		p.stakes[s.CampaignID] = &s
	}
}
