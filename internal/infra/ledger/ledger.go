// Package ledger implements the per-campaign funding state machine.
//
// States and transitions:
//
//	Draft --launch--> Live --[threshold met OR deadline passed]--> {Successful | Failed}
//	Failed --[refund initiation]--> Refunding
//
// Transitions are monotonic; a campaign never re-enters Draft or Live.
// Completion is evaluated after every investment, not deferred, so the
// success threshold is detected as early as possible. A Live campaign that
// never crosses the threshold and never passes its deadline stays Live
// indefinitely — there is no forced closure.
//
// The ledger is a pure state machine: it does not reach into the issuer
// registry or the escrow. The engine facade sequences those side effects
// around the transitions reported here.
package ledger

import (
	"sync"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// Config bounds campaign creation and sets the success threshold.
type Config struct {
	MinGoal       int64         // smallest acceptable funding goal
	GoalCeiling   int64         // regulatory ceiling on the funding goal
	MaxDuration   time.Duration // maximum campaign window
	ThresholdBP   int64         // success threshold in basis points of the goal
	MinInvestment int64         // applied when a campaign does not set its own
}

// DefaultConfig returns the platform defaults: goals between 1,000 and
// 50,000,000 units, campaigns up to 180 days, 75% success threshold,
// minimum investment 100 units.
func DefaultConfig() Config {
	return Config{
		MinGoal:       1_000,
		GoalCeiling:   50_000_000,
		MaxDuration:   180 * 24 * time.Hour,
		ThresholdBP:   7_500,
		MinInvestment: 100,
	}
}

// CreateParams carries the caller-chosen campaign attributes.
type CreateParams struct {
	ID            string
	Issuer        string
	CompanyName   string
	MetadataRef   string
	Goal          int64
	MinInvestment int64
	MaxInvestment int64 // 0 = unbounded
	Duration      time.Duration
}

// Transition reports the outcome of a completion evaluation.
type Transition struct {
	From    domain.CampaignState
	To      domain.CampaignState
	Changed bool
}

type campaign struct {
	header   domain.Campaign
	balances map[string]int64 // investor → accumulated amount
	order    []string         // investor first-deposit order
	log      []domain.Investment
}

// Ledger is the arena of campaign state machines, indexed by id.
// Campaign structs are built by Create rather than cloned from a template.
type Ledger struct {
	mu        sync.RWMutex
	cfg       Config
	campaigns map[string]*campaign
}

// New creates an empty ledger.
func New(cfg Config) *Ledger {
	return &Ledger{cfg: cfg, campaigns: make(map[string]*campaign)}
}

// Create registers a campaign in Draft.
func (l *Ledger) Create(p CreateParams, now time.Time) (domain.Campaign, error) {
	if p.ID == "" {
		return domain.Campaign{}, domain.ErrEmptyID
	}
	if p.Issuer == "" {
		return domain.Campaign{}, domain.ErrZeroAddress
	}
	if p.Goal < l.cfg.MinGoal || p.Goal > l.cfg.GoalCeiling {
		return domain.Campaign{}, domain.ErrInvalidGoal
	}
	if p.Duration <= 0 || p.Duration > l.cfg.MaxDuration {
		return domain.Campaign{}, domain.ErrInvalidDuration
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.campaigns[p.ID]; ok {
		return domain.Campaign{}, domain.ErrDuplicateCampaignID
	}
	if p.MinInvestment == 0 {
		p.MinInvestment = l.cfg.MinInvestment
	}
	c := &campaign{
		header: domain.Campaign{
			ID:            p.ID,
			Issuer:        p.Issuer,
			CompanyName:   p.CompanyName,
			MetadataRef:   p.MetadataRef,
			Goal:          p.Goal,
			MinInvestment: p.MinInvestment,
			MaxInvestment: p.MaxInvestment,
			Duration:      p.Duration,
			State:         domain.StateDraft,
			CreatedAt:     now,
		},
		balances: make(map[string]int64),
	}
	l.campaigns[p.ID] = c
	return c.header, nil
}

// Launch moves a Draft campaign Live and fixes its deadline. Issuer
// eligibility is the engine's concern; the ledger only enforces the state
// machine.
func (l *Ledger) Launch(id string, now time.Time) (domain.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrUnknownCampaign
	}
	if c.header.State != domain.StateDraft {
		return domain.Campaign{}, domain.ErrCampaignNotDraft
	}
	c.header.State = domain.StateLive
	c.header.StartTime = now
	c.header.Deadline = now.Add(c.header.Duration)
	return c.header, nil
}

// RecordInvestment appends to the investment log and updates totals.
// Returns the appended line and whether this was the investor's first
// deposit. The caller must follow up with EvaluateCompletion — the
// evaluation is mandatory after every investment.
func (l *Ledger) RecordInvestment(id, investor string, amount int64, method domain.PaymentMethod, ref string, now time.Time) (domain.Investment, bool, error) {
	if investor == "" {
		return domain.Investment{}, false, domain.ErrZeroAddress
	}
	if amount <= 0 {
		return domain.Investment{}, false, domain.ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.Investment{}, false, domain.ErrUnknownCampaign
	}
	if c.header.State != domain.StateLive {
		return domain.Investment{}, false, domain.ErrCampaignNotLive
	}
	if now.After(c.header.Deadline) {
		return domain.Investment{}, false, domain.ErrDeadlinePassed
	}
	if amount < c.header.MinInvestment {
		return domain.Investment{}, false, domain.ErrInvestmentTooSmall
	}
	if c.header.MaxInvestment > 0 && amount > c.header.MaxInvestment {
		return domain.Investment{}, false, domain.ErrInvestmentTooLarge
	}

	inv := domain.Investment{
		CampaignID:    id,
		Investor:      investor,
		Amount:        amount,
		PaymentMethod: method,
		PaymentRef:    ref,
		Timestamp:     now,
	}
	c.log = append(c.log, inv)

	_, seen := c.balances[investor]
	c.balances[investor] += amount
	if !seen {
		c.order = append(c.order, investor)
		c.header.InvestorCount++
	}
	c.header.TotalRaised += amount
	return inv, !seen, nil
}

// EvaluateCompletion applies the completion rule and reports any transition.
// Idempotent: calling it on a terminal or still-open campaign changes
// nothing.
func (l *Ledger) EvaluateCompletion(id string, now time.Time) (Transition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return Transition{}, domain.ErrUnknownCampaign
	}
	from := c.header.State
	if from != domain.StateLive {
		return Transition{From: from, To: from}, nil
	}

	switch {
	case c.header.TotalRaised >= c.header.Threshold(l.cfg.ThresholdBP):
		c.header.State = domain.StateSuccessful
	case now.After(c.header.Deadline):
		c.header.State = domain.StateFailed
	default:
		return Transition{From: from, To: from}, nil
	}
	c.header.EndTime = now
	return Transition{From: from, To: c.header.State, Changed: true}, nil
}

// BeginRefunding moves a Failed campaign into Refunding.
func (l *Ledger) BeginRefunding(id string) (domain.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrUnknownCampaign
	}
	if c.header.State == domain.StateRefunding {
		return c.header, nil
	}
	if c.header.State != domain.StateFailed {
		return domain.Campaign{}, domain.ErrCampaignNotFailed
	}
	c.header.State = domain.StateRefunding
	return c.header, nil
}

// MarkFundsReleased flags the campaign header after a successful release.
// The state itself stays Successful; the flag is the audit field the header
// keeps mutable after the terminal transition.
func (l *Ledger) MarkFundsReleased(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.ErrUnknownCampaign
	}
	c.header.FundsReleased = true
	return nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get returns a copy of the campaign header.
func (l *Ledger) Get(id string) (domain.Campaign, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrUnknownCampaign
	}
	return c.header, nil
}

// List returns copies of all campaign headers.
func (l *Ledger) List() []domain.Campaign {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Campaign, 0, len(l.campaigns))
	for _, c := range l.campaigns {
		out = append(out, c.header)
	}
	return out
}

// LiveIDs returns the ids of all Live campaigns, for the deadline sweep.
func (l *Ledger) LiveIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []string
	for id, c := range l.campaigns {
		if c.header.State == domain.StateLive {
			out = append(out, id)
		}
	}
	return out
}

// Investors returns the investor addresses in first-deposit order.
func (l *Ledger) Investors(id string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[id]
	if !ok {
		return nil, domain.ErrUnknownCampaign
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out, nil
}

// InvestmentOf returns an investor's accumulated balance for a campaign.
func (l *Ledger) InvestmentOf(id, investor string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[id]
	if !ok {
		return 0, domain.ErrUnknownCampaign
	}
	return c.balances[investor], nil
}

// Log returns a copy of the append-only investment log.
func (l *Ledger) Log(id string) ([]domain.Investment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[id]
	if !ok {
		return nil, domain.ErrUnknownCampaign
	}
	out := make([]domain.Investment, len(c.log))
	copy(out, c.log)
	return out, nil
}

// UnrefundedLines returns the indices of log lines not yet refunded.
func (l *Ledger) UnrefundedLines(id string) ([]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[id]
	if !ok {
		return nil, domain.ErrUnknownCampaign
	}
	var out []int
	for i := range c.log {
		if !c.log[i].Refunded {
			out = append(out, i)
		}
	}
	return out, nil
}

// MarkRefunded flags one log line as refunded, exactly once. Protects
// against double payment when a refund is re-attempted after a partial
// failure.
func (l *Ledger) MarkRefunded(id string, line int, now time.Time) (domain.Investment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[id]
	if !ok {
		return domain.Investment{}, domain.ErrUnknownCampaign
	}
	if line < 0 || line >= len(c.log) {
		return domain.Investment{}, domain.ErrUnknownCampaign
	}
	if c.log[line].Refunded {
		return c.log[line], domain.ErrAlreadyRefunded
	}
	c.log[line].Refunded = true
	c.log[line].RefundedAt = now
	return c.log[line], nil
}

// Restore rebuilds ledger state from persisted rows. Investment rows must be
// in original append order. Used at boot only.
func (l *Ledger) Restore(headers []domain.Campaign, investments []domain.Investment) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range headers {
		h := headers[i]
		l.campaigns[h.ID] = &campaign{header: h, balances: make(map[string]int64)}
	}
	for _, inv := range investments {
		c, ok := l.campaigns[inv.CampaignID]
		if !ok {
			continue
		}
		c.log = append(c.log, inv)
		if _, seen := c.balances[inv.Investor]; !seen {
			c.order = append(c.order, inv.Investor)
		}
		c.balances[inv.Investor] += inv.Amount
	}
}
