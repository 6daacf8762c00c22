package engine

import (
	"strconv"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
	"github.com/fundra-network/fundra/internal/infra/ledger"
	"github.com/fundra-network/fundra/internal/infra/observability"
	"github.com/fundra-network/fundra/internal/infra/treasury"
)

// ─── Campaign Operations ────────────────────────────────────────────────────

// CreateCampaign creates a campaign in Draft. The issuer itself or an admin
// may call it; the issuer must be registered and active.
func (e *Engine) CreateCampaign(caller domain.Caller, p ledger.CreateParams) (domain.Campaign, error) {
	self := caller.Is(domain.RoleIssuer) && caller.Addr == p.Issuer
	if !self && !caller.Is(domain.RoleAdmin) {
		return domain.Campaign{}, domain.ErrUnauthorized
	}

	is, err := e.registry.Get(p.Issuer)
	if err != nil {
		return domain.Campaign{}, err
	}
	if !is.Active {
		return domain.Campaign{}, domain.ErrIssuerInactive
	}

	unlock := e.lockCampaign(p.ID)
	defer unlock()

	c, err := e.ledger.Create(p, e.now())
	if err != nil {
		return domain.Campaign{}, err
	}

	e.persistCampaign(c.ID)
	observability.CampaignsByState.WithLabelValues(string(domain.StateDraft)).Inc()
	e.emit(domain.Event{
		Type:       domain.EventCampaignCreated,
		CampaignID: c.ID,
		Issuer:     c.Issuer,
		Amount:     c.Goal,
		State:      c.State,
	})
	e.log.Info().Str("campaign", c.ID).Str("issuer", c.Issuer).Int64("goal", c.Goal).Msg("campaign created")
	return c, nil
}

// LaunchCampaign moves a Draft campaign Live, takes the issuer's exclusivity
// lock, and opens the escrow account. All eligibility checks run before any
// mutation.
func (e *Engine) LaunchCampaign(caller domain.Caller, id string) (domain.Campaign, error) {
	start := e.now()
	c, err := e.ledger.Get(id)
	if err != nil {
		return domain.Campaign{}, err
	}

	self := caller.Is(domain.RoleIssuer) && caller.Addr == c.Issuer
	if !self && !caller.Is(domain.RoleAdmin) {
		return domain.Campaign{}, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	if c, err = e.ledger.Get(id); err != nil {
		return domain.Campaign{}, err
	}
	if c.State != domain.StateDraft {
		return domain.Campaign{}, domain.ErrCampaignNotDraft
	}

	if err := e.registry.CanLaunch(c.Issuer, start); err != nil {
		return domain.Campaign{}, err
	}

	c, err = e.ledger.Launch(id, start)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := e.registry.Lock(c.Issuer, id, start); err != nil {
		return domain.Campaign{}, err
	}
	if _, err := e.escrow.Open(id, c.Issuer, start); err != nil {
		return domain.Campaign{}, err
	}

	e.persistCampaign(id)
	e.persistIssuer(c.Issuer)
	e.persistEscrow(id)
	observability.CampaignsByState.WithLabelValues(string(domain.StateDraft)).Dec()
	observability.CampaignsByState.WithLabelValues(string(domain.StateLive)).Inc()
	observability.CampaignTransitions.WithLabelValues(string(domain.StateDraft), string(domain.StateLive)).Inc()
	e.emit(domain.Event{
		Type:       domain.EventCampaignLaunched,
		CampaignID: id,
		Issuer:     c.Issuer,
		State:      c.State,
		Metadata:   map[string]string{"deadline": c.Deadline.Format(time.RFC3339)},
	})
	e.log.Info().Str("campaign", id).Time("deadline", c.Deadline).Msg("campaign launched")
	return c, nil
}

// Invest records one investment: ledger line, escrow custody, yield stake,
// then the mandatory completion evaluation. The investor itself, or an
// operator recording an off-platform payment, may call it.
func (e *Engine) Invest(caller domain.Caller, id, investor string, amount int64, method domain.PaymentMethod, paymentRef string) (domain.Investment, error) {
	self := caller.Is(domain.RoleInvestor) && caller.Addr == investor
	if !self && !caller.Is(domain.RoleOperator) {
		return domain.Investment{}, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	now := e.now()
	c, err := e.ledger.Get(id)
	if err != nil {
		return domain.Investment{}, err
	}
	if c.State != domain.StateLive {
		return domain.Investment{}, domain.ErrCampaignNotLive
	}
	// Escrow custody must be open and unsettled before the ledger line
	// commits; a failure past this point would leave the two out of step.
	acct, err := e.escrow.Get(id)
	if err != nil {
		return domain.Investment{}, err
	}
	if acct.Settled() {
		return domain.Investment{}, domain.ErrAlreadySettled
	}

	inv, _, err := e.ledger.RecordInvestment(id, investor, amount, method, paymentRef, now)
	if err != nil {
		return domain.Investment{}, err
	}

	escrowAcct := treasury.EscrowAccount(id)
	if err := e.bank.Credit(escrowAcct, amount); err != nil {
		return domain.Investment{}, err
	}
	if _, err := e.escrow.Deposit(id, investor, amount); err != nil {
		return domain.Investment{}, err
	}

	if e.pool.Active() {
		if e.pool.Has(id) {
			if _, err := e.pool.TopUp(id, amount, now); err != nil {
				return domain.Investment{}, err
			}
		} else {
			if _, err := e.pool.Stake(id, amount, now); err != nil {
				return domain.Investment{}, err
			}
			observability.OpenStakes.Inc()
			e.emit(domain.Event{
				Type:       domain.EventYieldStaked,
				CampaignID: id,
				Amount:     amount,
			})
		}
		e.persistStake(id)
	}

	log, _ := e.ledger.Log(id)
	e.persistInvestmentLine(id, len(log)-1)
	e.persistEscrow(id)
	e.persistTreasury(escrowAcct)
	observability.InvestmentsRecorded.Inc()
	observability.AmountInvested.Add(float64(amount))
	observability.EscrowHeld.Add(float64(amount))
	e.emit(domain.Event{
		Type:       domain.EventInvestmentRecorded,
		CampaignID: id,
		Investor:   investor,
		Amount:     amount,
		Metadata:   map[string]string{"payment_method": string(method)},
	})

	// Mandatory post-investment evaluation so the threshold is detected on
	// the deposit that crosses it, not at deadline.
	e.evaluateLocked(id, now)

	e.persistCampaign(id)
	return inv, nil
}

// CheckCompletion evaluates a campaign's completion. Idempotent; any
// authenticated caller may invoke it (the deadline sweep uses an operator).
func (e *Engine) CheckCompletion(caller domain.Caller, id string) (ledger.Transition, error) {
	if !caller.Is(domain.RoleOperator, domain.RoleIssuer, domain.RoleInvestor, domain.RoleRegistrar) {
		return ledger.Transition{}, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	tr, err := e.evaluateLocked(id, e.now())
	if err != nil {
		return ledger.Transition{}, err
	}
	e.persistCampaign(id)
	return tr, nil
}

// SweepDeadlines evaluates every Live campaign. Invoked by the scheduler;
// the engine itself never runs autonomous timers.
func (e *Engine) SweepDeadlines() int {
	changed := 0
	for _, id := range e.ledger.LiveIDs() {
		unlock := e.lockCampaign(id)
		tr, err := e.evaluateLocked(id, e.now())
		if err == nil && tr.Changed {
			changed++
			e.persistCampaign(id)
		}
		unlock()
	}
	return changed
}

// evaluateLocked runs the completion check and applies the transition side
// effects: issuer unlock, metrics, the state-change event. Caller holds the
// campaign lock.
func (e *Engine) evaluateLocked(id string, now time.Time) (ledger.Transition, error) {
	tr, err := e.ledger.EvaluateCompletion(id, now)
	if err != nil || !tr.Changed {
		return tr, err
	}

	c, err := e.ledger.Get(id)
	if err != nil {
		return tr, err
	}
	if err := e.registry.Unlock(c.Issuer); err == nil {
		e.persistIssuer(c.Issuer)
	}

	observability.CampaignsByState.WithLabelValues(string(tr.From)).Dec()
	observability.CampaignsByState.WithLabelValues(string(tr.To)).Inc()
	observability.CampaignTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	e.emit(domain.Event{
		Type:       domain.EventCampaignStateChanged,
		CampaignID: id,
		Issuer:     c.Issuer,
		Amount:     c.TotalRaised,
		State:      tr.To,
		Metadata:   map[string]string{"from": string(tr.From)},
	})
	e.log.Info().Str("campaign", id).Str("from", string(tr.From)).Str("to", string(tr.To)).Msg("campaign state changed")
	return tr, nil
}

// ─── Yield Compounding ──────────────────────────────────────────────────────

// Compound accrues whole-period yield on one campaign's stake. Operator only.
func (e *Engine) Compound(caller domain.Caller, id string) (periods, added int64, err error) {
	if !caller.Is(domain.RoleOperator) {
		return 0, 0, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	periods, added, err = e.pool.Compound(id, e.now())
	if err != nil {
		return 0, 0, err
	}
	if periods > 0 {
		e.persistStake(id)
		observability.YieldAccrued.Add(float64(added))
		e.emit(domain.Event{
			Type:       domain.EventYieldCompounded,
			CampaignID: id,
			Yield:      added,
			Metadata:   map[string]string{"periods": strconv.FormatInt(periods, 10)},
		})
	}
	return periods, added, nil
}

// CompoundAll accrues yield on every open stake. Invoked by the scheduler
// tick.
func (e *Engine) CompoundAll() (stakes int, total int64) {
	for _, id := range e.pool.OpenIDs() {
		unlock := e.lockCampaign(id)
		periods, added, err := e.pool.Compound(id, e.now())
		if err == nil && periods > 0 {
			stakes++
			total += added
			e.persistStake(id)
			observability.YieldAccrued.Add(float64(added))
			e.emit(domain.Event{
				Type:       domain.EventYieldCompounded,
				CampaignID: id,
				Yield:      added,
				Metadata:   map[string]string{"periods": strconv.FormatInt(periods, 10)},
			})
		}
		unlock()
	}
	return stakes, total
}
