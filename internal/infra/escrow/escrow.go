// Package escrow implements custody of deposited funds per campaign.
//
// One account per campaign, opened at launch. FundsReleased and
// RefundInitiated are mutually exclusive one-shot flags; both are set before
// any external transfer happens so a malicious payee re-entering the engine
// mid-payout observes post-mutation state. Per-payee paid markers exist
// beneath the account-level flags as defense in depth: a settlement retried
// after a partial payout failure re-attempts only payees not yet marked.
//
// The escrow holds no opinion on where value lives — the engine moves it
// through the treasury book — and no opinion on campaign state, which the
// engine reads from the ledger before calling in here.
package escrow

import (
	"sync"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// DepositRow is the persisted form of one investor's accumulated principal,
// with the paid marker for their yield share on release.
type DepositRow struct {
	CampaignID string
	Investor   string
	Amount     int64
	YieldPaid  bool
}

type account struct {
	acct        domain.EscrowAccount
	deposits    map[string]int64 // investor → accumulated principal
	order       []string         // first-deposit order
	yieldPaid   map[string]bool  // investor yield share paid on release
	refundLines []domain.RefundLine
}

// Escrow manages all campaign escrow accounts.
type Escrow struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// New creates an empty escrow.
func New() *Escrow {
	return &Escrow{accounts: make(map[string]*account)}
}

// Open creates the account for a campaign. One-shot.
func (e *Escrow) Open(campaignID, issuer string, now time.Time) (domain.EscrowAccount, error) {
	if campaignID == "" {
		return domain.EscrowAccount{}, domain.ErrEmptyID
	}
	if issuer == "" {
		return domain.EscrowAccount{}, domain.ErrZeroAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.accounts[campaignID]; ok {
		return domain.EscrowAccount{}, domain.ErrDuplicateEscrow
	}
	a := &account{
		acct: domain.EscrowAccount{
			CampaignID: campaignID,
			Issuer:     issuer,
			CreatedAt:  now,
		},
		deposits:  make(map[string]int64),
		yieldPaid: make(map[string]bool),
	}
	e.accounts[campaignID] = a
	return a.acct, nil
}

// Deposit accumulates funds into the account and the investor's balance.
// Rejected once settlement has begun.
func (e *Escrow) Deposit(campaignID, investor string, amount int64) (domain.EscrowAccount, error) {
	if investor == "" {
		return domain.EscrowAccount{}, domain.ErrZeroAddress
	}
	if amount <= 0 {
		return domain.EscrowAccount{}, domain.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return domain.EscrowAccount{}, domain.ErrUnknownEscrow
	}
	if a.acct.Settled() {
		return domain.EscrowAccount{}, domain.ErrAlreadySettled
	}
	if _, seen := a.deposits[investor]; !seen {
		a.order = append(a.order, investor)
	}
	a.deposits[investor] += amount
	a.acct.TotalFunds += amount
	return a.acct, nil
}

// BeginRelease arms the release. On the first call it sets the one-shot
// FundsReleased flag; a later call is a payout retry and reports
// first=false. Fails once every payee has been paid, or if a refund was
// initiated instead, or if there is nothing to release.
func (e *Escrow) BeginRelease(campaignID string, now time.Time) (first bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return false, domain.ErrUnknownEscrow
	}
	if a.acct.RefundInitiated {
		return false, domain.ErrAlreadyRefunded
	}
	if a.acct.FundsReleased {
		if a.settledOut() {
			return false, domain.ErrAlreadyReleased
		}
		return false, nil
	}
	if a.acct.TotalFunds == 0 {
		return false, domain.ErrNoFunds
	}
	// flag set before any external transfer
	a.acct.FundsReleased = true
	a.acct.SettledAt = now
	return true, nil
}

// settledOut reports whether every release payee has been paid.
// Caller holds the lock.
func (a *account) settledOut() bool {
	if !a.acct.IssuerPaid || !a.acct.PlatformPaid {
		return false
	}
	if a.acct.YieldGenerated > 0 {
		for _, inv := range a.order {
			if !a.yieldPaid[inv] {
				return false
			}
		}
	}
	return true
}

// BeginRefund arms the refund. On the first call it sets the one-shot
// RefundInitiated flag; a later call is a payout retry and reports
// first=false. Whether any refund lines remain unpaid is the caller's check
// — the investment log lives in the ledger.
func (e *Escrow) BeginRefund(campaignID string, now time.Time) (first bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return false, domain.ErrUnknownEscrow
	}
	if a.acct.FundsReleased {
		return false, domain.ErrAlreadyReleased
	}
	if a.acct.RefundInitiated {
		return false, nil
	}
	a.acct.RefundInitiated = true
	a.acct.SettledAt = now
	return true, nil
}

// RecordYield stores the harvested yield amount on the account.
func (e *Escrow) RecordYield(campaignID string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return domain.ErrUnknownEscrow
	}
	a.acct.YieldGenerated = amount
	return nil
}

// MarkIssuerPaid records the issuer payout as completed.
func (e *Escrow) MarkIssuerPaid(campaignID string) error {
	return e.mark(campaignID, func(a *account) { a.acct.IssuerPaid = true })
}

// MarkPlatformPaid records the platform payout as completed.
func (e *Escrow) MarkPlatformPaid(campaignID string) error {
	return e.mark(campaignID, func(a *account) { a.acct.PlatformPaid = true })
}

// MarkInvestorYieldPaid records one investor's release yield share as paid.
func (e *Escrow) MarkInvestorYieldPaid(campaignID, investor string) error {
	return e.mark(campaignID, func(a *account) { a.yieldPaid[investor] = true })
}

func (e *Escrow) mark(campaignID string, f func(*account)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return domain.ErrUnknownEscrow
	}
	f(a)
	return nil
}

// InvestorYieldPaid reports whether an investor's yield share was paid.
func (e *Escrow) InvestorYieldPaid(campaignID, investor string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.accounts[campaignID]
	return ok && a.yieldPaid[investor]
}

// AddRefundLine appends a completed refund payout record.
func (e *Escrow) AddRefundLine(line domain.RefundLine) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[line.CampaignID]
	if !ok {
		return domain.ErrUnknownEscrow
	}
	a.refundLines = append(a.refundLines, line)
	return nil
}

// RefundLines returns copies of the completed refund payouts.
func (e *Escrow) RefundLines(campaignID string) ([]domain.RefundLine, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return nil, domain.ErrUnknownEscrow
	}
	out := make([]domain.RefundLine, len(a.refundLines))
	copy(out, a.refundLines)
	return out, nil
}

// Get returns a copy of the account.
func (e *Escrow) Get(campaignID string) (domain.EscrowAccount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return domain.EscrowAccount{}, domain.ErrUnknownEscrow
	}
	return a.acct, nil
}

// Deposits returns each investor's accumulated principal in first-deposit
// order.
func (e *Escrow) Deposits(campaignID string) ([]DepositRow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.accounts[campaignID]
	if !ok {
		return nil, domain.ErrUnknownEscrow
	}
	out := make([]DepositRow, 0, len(a.order))
	for _, inv := range a.order {
		out = append(out, DepositRow{
			CampaignID: campaignID,
			Investor:   inv,
			Amount:     a.deposits[inv],
			YieldPaid:  a.yieldPaid[inv],
		})
	}
	return out, nil
}

// Restore rebuilds escrow state from persisted rows. Deposit rows must be in
// original first-deposit order per campaign. Used at boot only.
func (e *Escrow) Restore(accounts []domain.EscrowAccount, deposits []DepositRow, refunds []domain.RefundLine) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range accounts {
		e.accounts[accounts[i].CampaignID] = &account{
			acct:      accounts[i],
			deposits:  make(map[string]int64),
			yieldPaid: make(map[string]bool),
		}
	}
	for _, d := range deposits {
		a, ok := e.accounts[d.CampaignID]
		if !ok {
			continue
		}
		if _, seen := a.deposits[d.Investor]; !seen {
			a.order = append(a.order, d.Investor)
		}
		a.deposits[d.Investor] += d.Amount
		if d.YieldPaid {
			a.yieldPaid[d.Investor] = true
		}
	}
	for _, r := range refunds {
		if a, ok := e.accounts[r.CampaignID]; ok {
			a.refundLines = append(a.refundLines, r)
		}
	}
}
