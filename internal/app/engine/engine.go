// Package engine is the transaction facade over the funding components.
//
// Every public method is one atomic transaction: authenticate the caller,
// take the campaign's lock, validate every precondition, apply mutations
// across components, write changed rows through to sqlite, emit events,
// release the lock. No partial effect escapes a failed call.
//
// Operations on different campaigns run in parallel; operations on one
// campaign are strictly serialized by a striped lock keyed on the campaign
// id. The issuer registry carries its own lock because exclusivity spans
// campaigns.
package engine

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fundra-network/fundra/internal/domain"
	"github.com/fundra-network/fundra/internal/infra/certs"
	"github.com/fundra-network/fundra/internal/infra/escrow"
	"github.com/fundra-network/fundra/internal/infra/events"
	"github.com/fundra-network/fundra/internal/infra/ledger"
	"github.com/fundra-network/fundra/internal/infra/observability"
	"github.com/fundra-network/fundra/internal/infra/registry"
	"github.com/fundra-network/fundra/internal/infra/sqlite"
	"github.com/fundra-network/fundra/internal/infra/treasury"
	"github.com/fundra-network/fundra/internal/infra/yieldpool"
)

const lockStripes = 64

// Config assembles the component policies plus the settlement split.
type Config struct {
	Ledger ledger.Config
	Yield  yieldpool.Config
	Certs  certs.Config

	// PlatformFeeBP is the release fee on principal, in basis points.
	PlatformFeeBP int64

	// Harvested yield splits three ways; the platform takes the remainder
	// so the shares always sum to the harvest exactly.
	InvestorYieldBP int64
	IssuerYieldBP   int64

	EventBuffer int
}

// DefaultConfig returns production defaults: 2.5% release fee, 50/30/20
// yield split.
func DefaultConfig() Config {
	return Config{
		Ledger:          ledger.DefaultConfig(),
		Yield:           yieldpool.DefaultConfig(),
		Certs:           certs.DefaultConfig(),
		PlatformFeeBP:   250,
		InvestorYieldBP: 5_000,
		IssuerYieldBP:   3_000,
		EventBuffer:     10_000,
	}
}

// Engine owns the components and serializes access to them.
type Engine struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	registry *registry.Registry
	ledger   *ledger.Ledger
	escrow   *escrow.Escrow
	pool     *yieldpool.Pool
	bank     *treasury.Bank
	certs    *certs.Book

	events *events.Log
	db     *sqlite.DB // nil = memory only

	locks [lockStripes]sync.Mutex
}

// New wires an engine. db may be nil for an ephemeral in-memory engine.
func New(cfg Config, db *sqlite.DB, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		registry: registry.New(),
		ledger:   ledger.New(cfg.Ledger),
		escrow:   escrow.New(),
		pool:     yieldpool.New(cfg.Yield),
		bank:     treasury.New(),
		certs:    certs.New(cfg.Certs),
		events:   events.NewLog(cfg.EventBuffer),
		db:       db,
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Events exposes the event log for the SSE feed and mirrors.
func (e *Engine) Events() *events.Log { return e.events }

// Bank exposes the treasury book for balance queries and payout-failure
// injection in tests and operator tooling.
func (e *Engine) Bank() *treasury.Bank { return e.bank }

// Boot replays persisted state into the components. Call once, before the
// engine is shared.
func (e *Engine) Boot() error {
	if e.db == nil {
		return nil
	}

	issuers, err := e.db.ListIssuers()
	if err != nil {
		return err
	}
	e.registry.Restore(issuers)

	campaigns, err := e.db.ListCampaigns()
	if err != nil {
		return err
	}
	investments, err := e.db.ListInvestments()
	if err != nil {
		return err
	}
	e.ledger.Restore(campaigns, investments)

	accounts, err := e.db.ListEscrowAccounts()
	if err != nil {
		return err
	}
	deposits, err := e.db.ListEscrowDeposits()
	if err != nil {
		return err
	}
	refunds, err := e.db.ListRefundLines()
	if err != nil {
		return err
	}
	e.escrow.Restore(accounts, deposits, refunds)

	stakes, err := e.db.ListStakes()
	if err != nil {
		return err
	}
	e.pool.Restore(stakes)

	certificates, err := e.db.ListCertificates()
	if err != nil {
		return err
	}
	history, err := e.db.ListCertificateTransfers()
	if err != nil {
		return err
	}
	e.certs.Restore(certificates, history)

	balances, err := e.db.ListTreasuryBalances()
	if err != nil {
		return err
	}
	e.bank.Restore(balances)

	e.log.Info().
		Int("issuers", len(issuers)).
		Int("campaigns", len(campaigns)).
		Int("stakes", len(stakes)).
		Int("certificates", len(certificates)).
		Msg("engine state restored")
	return nil
}

// ─── Locking ────────────────────────────────────────────────────────────────

func (e *Engine) lockCampaign(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &e.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// ─── Persistence (write-through, best-effort) ───────────────────────────────
// The in-memory components are authoritative; a store failure is logged and
// the transaction still commits. The store catches up on the next write of
// the same row, and Boot rebuilds from whatever was captured.

func (e *Engine) persist(what string, fn func() error) {
	if e.db == nil {
		return
	}
	if err := fn(); err != nil {
		e.log.Error().Err(err).Str("row", what).Msg("write-through persist failed")
	}
}

func (e *Engine) persistIssuer(addr string) {
	is, err := e.registry.Get(addr)
	if err != nil {
		return
	}
	e.persist("issuer", func() error { return e.db.UpsertIssuer(is) })
}

func (e *Engine) persistCampaign(id string) {
	c, err := e.ledger.Get(id)
	if err != nil {
		return
	}
	e.persist("campaign", func() error { return e.db.UpsertCampaign(c) })
}

func (e *Engine) persistInvestmentLine(id string, line int) {
	log, err := e.ledger.Log(id)
	if err != nil || line < 0 || line >= len(log) {
		return
	}
	e.persist("investment", func() error { return e.db.UpsertInvestment(line, log[line]) })
}

func (e *Engine) persistEscrow(id string) {
	acct, err := e.escrow.Get(id)
	if err != nil {
		return
	}
	e.persist("escrow_account", func() error { return e.db.UpsertEscrowAccount(acct) })
	rows, err := e.escrow.Deposits(id)
	if err != nil {
		return
	}
	for _, row := range rows {
		row := row
		e.persist("escrow_deposit", func() error { return e.db.UpsertEscrowDeposit(row) })
	}
}

// persistDeposit writes one investor's deposit row, used when its paid
// marker changes mid-settlement.
func (e *Engine) persistDeposit(id, investor string) {
	rows, err := e.escrow.Deposits(id)
	if err != nil {
		return
	}
	for _, row := range rows {
		if row.Investor == investor {
			row := row
			e.persist("escrow_deposit", func() error { return e.db.UpsertEscrowDeposit(row) })
			return
		}
	}
}

// persistSettlementFlags writes the escrow account row and surfaces the
// store error rather than logging it. The one-shot release/refund flags
// must be durable before any value leaves the escrow: a flag the store
// never saw would replay the whole payout after a restart.
func (e *Engine) persistSettlementFlags(id string) error {
	if e.db == nil {
		return nil
	}
	acct, err := e.escrow.Get(id)
	if err != nil {
		return err
	}
	if err := e.db.UpsertEscrowAccount(acct); err != nil {
		return fmt.Errorf("persist settlement flags: %w", err)
	}
	return nil
}

func (e *Engine) persistStake(id string) {
	s, err := e.pool.Get(id)
	if err != nil {
		return
	}
	e.persist("stake", func() error { return e.db.UpsertStake(s) })
}

func (e *Engine) persistTreasury(accounts ...string) {
	for _, acct := range accounts {
		acct := acct
		bal := e.bank.Balance(acct)
		e.persist("treasury", func() error { return e.db.UpsertTreasuryBalance(acct, bal) })
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

func (e *Engine) emit(ev domain.Event) {
	ev.ID = uuid.NewString()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	e.events.Publish(ev)
	observability.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	e.persist("event", func() error { return e.db.InsertEvent(ev) })
}

// ─── Queries ────────────────────────────────────────────────────────────────
// Reads go straight to the components, which take their own read locks.

func (e *Engine) GetIssuer(addr string) (domain.Issuer, error) { return e.registry.Get(addr) }

// ListIssuers returns all registered issuers.
func (e *Engine) ListIssuers() []domain.Issuer { return e.registry.List() }

func (e *Engine) GetCampaign(id string) (domain.Campaign, error) { return e.ledger.Get(id) }

// ListCampaigns returns all campaign headers.
func (e *Engine) ListCampaigns() []domain.Campaign { return e.ledger.List() }

// Investors returns a campaign's investors in first-deposit order.
func (e *Engine) Investors(id string) ([]string, error) { return e.ledger.Investors(id) }

// InvestmentOf returns an investor's accumulated balance in a campaign.
func (e *Engine) InvestmentOf(id, investor string) (int64, error) {
	return e.ledger.InvestmentOf(id, investor)
}

// InvestmentLog returns a campaign's append-only investment log.
func (e *Engine) InvestmentLog(id string) ([]domain.Investment, error) { return e.ledger.Log(id) }

func (e *Engine) GetEscrow(id string) (domain.EscrowAccount, error) { return e.escrow.Get(id) }

// RefundLines returns a campaign's completed refund payouts.
func (e *Engine) RefundLines(id string) ([]domain.RefundLine, error) { return e.escrow.RefundLines(id) }

func (e *Engine) GetStake(id string) (domain.Stake, error) { return e.pool.Get(id) }

// Certificates returns a campaign's issued certificates.
func (e *Engine) Certificates(id string) []domain.ShareCertificate { return e.certs.ByCampaign(id) }

// CertificatesByOwner returns all certificates held by one owner.
func (e *Engine) CertificatesByOwner(owner string) []domain.ShareCertificate {
	return e.certs.ByOwner(owner)
}

// GetCertificate returns one certificate by token id.
func (e *Engine) GetCertificate(tokenID string) (domain.ShareCertificate, error) {
	return e.certs.Get(tokenID)
}

// CertificateHistory returns the administrative transfer history.
func (e *Engine) CertificateHistory() []domain.CertificateTransfer { return e.certs.History() }
