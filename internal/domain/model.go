// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// ─── Campaign State Machine ─────────────────────────────────────────────────

// CampaignState is the lifecycle state of a campaign.
// Transitions are monotonic and one-directional — a campaign never re-enters
// Draft or Live once it has left.
type CampaignState string

const (
	StateDraft      CampaignState = "DRAFT"
	StateLive       CampaignState = "LIVE"
	StateSuccessful CampaignState = "SUCCESSFUL"
	StateFailed     CampaignState = "FAILED"
	StateRefunding  CampaignState = "REFUNDING"
)

// Terminal reports whether the state accepts no further lifecycle transitions
// other than Failed → Refunding.
func (s CampaignState) Terminal() bool {
	return s == StateSuccessful || s == StateFailed || s == StateRefunding
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s CampaignState) CanTransitionTo(next CampaignState) bool {
	switch s {
	case StateDraft:
		return next == StateLive
	case StateLive:
		return next == StateSuccessful || next == StateFailed
	case StateFailed:
		return next == StateRefunding
	default:
		return false
	}
}

// ─── Issuer ─────────────────────────────────────────────────────────────────

// Issuer is a registered campaign issuer. Issuers are never deleted, only
// deactivated. The exclusivity lock is the sole mechanism preventing an
// issuer from running two campaigns concurrently or twice in one year.
type Issuer struct {
	Address          string    `json:"address"`
	CredentialHash   string    `json:"credential_hash"` // verifiable-credential hash
	DisclosureHash   string    `json:"disclosure_hash"` // information memorandum document hash
	RegisteredAt     time.Time `json:"registered_at"`
	Active           bool      `json:"active"`
	LastCampaignYear int       `json:"last_campaign_year,omitempty"` // 0 = never launched
	Locked           bool      `json:"exclusivity_locked"`
	ActiveCampaign   string    `json:"active_campaign,omitempty"` // invariant: Locked ⇒ non-empty
}

// ─── Campaign ───────────────────────────────────────────────────────────────

// Campaign is the per-campaign funding ledger header. Amounts are in the
// platform's smallest currency unit.
type Campaign struct {
	ID            string        `json:"id"`
	Issuer        string        `json:"issuer"`
	CompanyName   string        `json:"company_name,omitempty"`
	MetadataRef   string        `json:"metadata_ref,omitempty"` // document hash (IPFS-style)
	Goal          int64         `json:"goal"`
	MinInvestment int64         `json:"min_investment,omitempty"`
	MaxInvestment int64         `json:"max_investment,omitempty"` // 0 = unbounded
	Duration      time.Duration `json:"duration"`
	State         CampaignState `json:"state"`
	CreatedAt     time.Time     `json:"created_at"`
	StartTime     time.Time     `json:"start_time,omitempty"` // set at launch
	Deadline      time.Time     `json:"deadline,omitempty"`   // StartTime + Duration
	EndTime       time.Time     `json:"end_time,omitempty"`   // set at terminal transition
	TotalRaised   int64         `json:"total_raised"`
	InvestorCount int           `json:"investor_count"`
	FundsReleased bool          `json:"funds_released"`
}

// Threshold returns the success threshold amount for the given basis points.
func (c *Campaign) Threshold(thresholdBP int64) int64 {
	return c.Goal * thresholdBP / 10000
}

// ProgressBasisPoints returns how much of the goal has been raised, in bp.
func (c *Campaign) ProgressBasisPoints() int64 {
	if c.Goal == 0 {
		return 0
	}
	return c.TotalRaised * 10000 / c.Goal
}

// TimeRemaining returns the time until the deadline, zero if passed or the
// campaign has not launched.
func (c *Campaign) TimeRemaining(now time.Time) time.Duration {
	if c.State != StateLive || c.Deadline.IsZero() {
		return 0
	}
	if d := c.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ─── Investment ─────────────────────────────────────────────────────────────

// PaymentMethod identifies how an investment was funded.
type PaymentMethod string

const (
	PayCrypto    PaymentMethod = "crypto"
	PayTelebirr  PaymentMethod = "telebirr"
	PayCBE       PaymentMethod = "cbe"
	PayAwash     PaymentMethod = "awash"
	PayDashen    PaymentMethod = "dashen"
	PayAbyssinia PaymentMethod = "abyssinia"
	PayOther     PaymentMethod = "other"
)

// Investment is one append-only line in a campaign's investment log.
// Multiple deposits by the same investor accumulate into one logical balance;
// the log exists for audit and partial-refund accounting.
type Investment struct {
	CampaignID    string        `json:"campaign_id"`
	Investor      string        `json:"investor"`
	Amount        int64         `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Refunded      bool          `json:"refunded"`
	RefundedAt    time.Time     `json:"refunded_at,omitempty"`
}

// ─── Escrow ─────────────────────────────────────────────────────────────────

// EscrowAccount holds custody state for one campaign's pooled funds.
// FundsReleased and RefundInitiated are mutually exclusive one-shot flags.
// IssuerPaid and PlatformPaid track the individual release payouts so a
// retried release after a partial payout failure re-attempts only unpaid
// payees.
type EscrowAccount struct {
	CampaignID      string    `json:"campaign_id"`
	Issuer          string    `json:"issuer"`
	TotalFunds      int64     `json:"total_funds"`
	YieldGenerated  int64     `json:"yield_generated"`
	FundsReleased   bool      `json:"funds_released"`
	RefundInitiated bool      `json:"refund_initiated"`
	IssuerPaid      bool      `json:"issuer_paid"`
	PlatformPaid    bool      `json:"platform_paid"`
	CreatedAt       time.Time `json:"created_at"`
	SettledAt       time.Time `json:"settled_at,omitempty"`
}

// Settled reports whether the account has entered settlement.
func (a *EscrowAccount) Settled() bool {
	return a.FundsReleased || a.RefundInitiated
}

// RefundLine records one completed refund payout to one investor.
type RefundLine struct {
	CampaignID string    `json:"campaign_id"`
	Investor   string    `json:"investor"`
	Amount     int64     `json:"amount"`
	PaidAt     time.Time `json:"paid_at"`
}

// ─── Yield Stake ────────────────────────────────────────────────────────────

// Stake is the yield-pool position for one campaign (one stake per campaign;
// further deposits top it up rather than opening new positions).
type Stake struct {
	CampaignID      string    `json:"campaign_id"`
	Principal       int64     `json:"principal"`
	YieldAccrued    int64     `json:"yield_accrued"`
	StakeTime       time.Time `json:"stake_time"`
	LastCompoundKey time.Time `json:"last_compound_time"` // only advances in whole periods
	Harvested       bool      `json:"harvested"`
}

// Balance is principal plus accrued yield.
func (s *Stake) Balance() int64 { return s.Principal + s.YieldAccrued }

// ─── Share Certificates ─────────────────────────────────────────────────────

// ShareCertificate is a non-transferable record of an investor's final stake
// in a successful campaign. One certificate per (campaign, investor) pair.
type ShareCertificate struct {
	TokenID          string    `json:"token_id"`
	CampaignID       string    `json:"campaign_id"`
	CompanyName      string    `json:"company_name,omitempty"`
	Owner            string    `json:"owner"`
	InvestmentAmount int64     `json:"investment_amount"`
	ShareCount       int64     `json:"share_count"`
	VotingPower      int64     `json:"voting_power"`
	TokenURI         string    `json:"token_uri,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
	Active           bool      `json:"active"`
}

// CertificateTransfer records an administrative ownership change
// (revoke + reissue path; certificates reject standard transfers).
type CertificateTransfer struct {
	TokenID string    `json:"token_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// ShareCount computes the basis-point-like share allocation for an investment.
func ShareCount(amount, goal, scale int64) int64 {
	if goal == 0 {
		return 0
	}
	return amount * scale / goal
}

// VotingPower computes voting power with a floor of one vote for any nonzero
// investment.
func VotingPower(amount, votingUnit int64) int64 {
	if amount <= 0 {
		return 0
	}
	if v := amount / votingUnit; v > 1 {
		return v
	}
	return 1
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// FormatAmount renders a smallest-unit amount as a whole.fraction string with
// two decimal places, e.g. 123456 → "1234.56".
func FormatAmount(units int64) string {
	neg := ""
	if units < 0 {
		neg = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", neg, units/100, units%100)
}
