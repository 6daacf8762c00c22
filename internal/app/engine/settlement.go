package engine

import (
	"strconv"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
	"github.com/fundra-network/fundra/internal/infra/certs"
	"github.com/fundra-network/fundra/internal/infra/observability"
	"github.com/fundra-network/fundra/internal/infra/treasury"
)

// ─── Settlement ─────────────────────────────────────────────────────────────
// Release and Refund are the two one-shot, mutually exclusive settlement
// paths. Flags commit — in memory and in the store — before any transfer,
// so a payee observing its own payment can never re-enter pre-settlement
// state, not even across a restart. Per-payee paid markers make a retried
// call after a partial payout failure re-attempt only what remains unpaid,
// and each marker persists before the balance it guards.

// ReleaseResult summarizes one release call's payouts.
type ReleaseResult struct {
	CampaignID    string `json:"campaign_id"`
	Principal     int64  `json:"principal"`
	Yield         int64  `json:"yield"`
	Fee           int64  `json:"fee"`
	IssuerPaid    int64  `json:"issuer_paid"`
	InvestorYield int64  `json:"investor_yield_paid"`
	PlatformPaid  int64  `json:"platform_paid"`
	Complete      bool   `json:"complete"`
}

// Release settles a Successful campaign: harvest yield, then pay the issuer
// principal minus the platform fee plus the issuer's yield share, investors
// their yield share pro-rata, and the platform the fee plus the remainder.
// The issuer itself or an operator may call it.
func (e *Engine) Release(caller domain.Caller, id string) (ReleaseResult, error) {
	start := time.Now()
	res, err := e.release(caller, id)
	observability.ObserveOperation("release", start, err)
	return res, err
}

func (e *Engine) release(caller domain.Caller, id string) (ReleaseResult, error) {
	c, err := e.ledger.Get(id)
	if err != nil {
		return ReleaseResult{}, err
	}
	self := caller.Is(domain.RoleIssuer) && caller.Addr == c.Issuer
	if !self && !caller.Is(domain.RoleOperator) {
		return ReleaseResult{}, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	if c, err = e.ledger.Get(id); err != nil {
		return ReleaseResult{}, err
	}
	if c.State != domain.StateSuccessful {
		return ReleaseResult{}, domain.ErrCampaignNotSuccessful
	}

	now := e.now()
	first, err := e.escrow.BeginRelease(id, now)
	if err != nil {
		return ReleaseResult{}, err
	}
	if first {
		e.harvestLocked(id, now)
		if err := e.ledger.MarkFundsReleased(id); err == nil {
			e.persistCampaign(id)
		}
		acct, _ := e.escrow.Get(id)
		observability.EscrowHeld.Sub(float64(acct.TotalFunds))
	}
	// The released flag commits to the store before any transfer; no money
	// moves out of an escrow whose settlement the store has not seen.
	if err := e.persistSettlementFlags(id); err != nil {
		return ReleaseResult{}, err
	}

	acct, err := e.escrow.Get(id)
	if err != nil {
		return ReleaseResult{}, err
	}

	total := acct.TotalFunds
	yield := acct.YieldGenerated
	fee := total * e.cfg.PlatformFeeBP / 10_000
	investorShare := yield * e.cfg.InvestorYieldBP / 10_000
	issuerShare := yield * e.cfg.IssuerYieldBP / 10_000

	deposits, err := e.escrow.Deposits(id)
	if err != nil {
		return ReleaseResult{}, err
	}
	// Floor sum over every deposit is stable across retries, so the platform
	// remainder (including pro-rata rounding dust) is deterministic.
	var floorSum int64
	for _, row := range deposits {
		floorSum += investorShare * row.Amount / total
	}
	platformAmt := fee + yield - floorSum - issuerShare
	issuerAmt := total - fee + issuerShare

	res := ReleaseResult{CampaignID: id, Principal: total, Yield: yield, Fee: fee}
	escrowAcct := treasury.EscrowAccount(id)
	var firstErr error

	if yield > 0 {
		for _, row := range deposits {
			if row.YieldPaid {
				continue
			}
			amt := investorShare * row.Amount / total
			if amt > 0 {
				if err := e.bank.Transfer(escrowAcct, row.Investor, amt); err != nil {
					observability.PayoutFailures.Inc()
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
			}
			// Paid marker before balance mirror: losing the marker with the
			// credit already durable would pay this row twice after a restart.
			e.escrow.MarkInvestorYieldPaid(id, row.Investor)
			e.persistDeposit(id, row.Investor)
			e.persistTreasury(row.Investor, escrowAcct)
			res.InvestorYield += amt
		}
	}

	if !acct.IssuerPaid {
		if err := e.bank.Transfer(escrowAcct, c.Issuer, issuerAmt); err != nil {
			observability.PayoutFailures.Inc()
			if firstErr == nil {
				firstErr = err
			}
		} else {
			e.escrow.MarkIssuerPaid(id)
			e.persistEscrow(id)
			e.persistTreasury(c.Issuer, escrowAcct)
			res.IssuerPaid = issuerAmt
			e.emit(domain.Event{
				Type:       domain.EventFundsReleased,
				CampaignID: id,
				Issuer:     c.Issuer,
				Amount:     issuerAmt,
				Yield:      issuerShare,
				Metadata:   map[string]string{"fee": domain.FormatAmount(fee)},
			})
			e.log.Info().Str("campaign", id).Int64("amount", issuerAmt).Msg("escrow released to issuer")
		}
	}

	if !acct.PlatformPaid {
		paid := true
		if platformAmt > 0 {
			if err := e.bank.Transfer(escrowAcct, treasury.PlatformAccount, platformAmt); err != nil {
				observability.PayoutFailures.Inc()
				if firstErr == nil {
					firstErr = err
				}
				paid = false
			}
		}
		if paid {
			e.escrow.MarkPlatformPaid(id)
			e.persistEscrow(id)
			e.persistTreasury(treasury.PlatformAccount, escrowAcct)
			res.PlatformPaid = platformAmt
		}
	}

	e.persistEscrow(id)
	e.persistTreasury(escrowAcct)

	if firstErr != nil {
		return res, firstErr
	}
	res.Complete = true
	observability.Settlements.WithLabelValues("release").Inc()
	return res, nil
}

// RefundResult summarizes one refund call's payouts.
type RefundResult struct {
	CampaignID string              `json:"campaign_id"`
	Lines      []domain.RefundLine `json:"lines"`
	Total      int64               `json:"total"`
	Complete   bool                `json:"complete"`
}

// Refund settles a Failed campaign: every unrefunded investment line is paid
// its principal plus a proportional share of harvested yield, marked refunded
// exactly once. Operator only (the deadline sweep's operator retries on
// payout failure).
func (e *Engine) Refund(caller domain.Caller, id string) (RefundResult, error) {
	start := time.Now()
	res, err := e.refund(caller, id)
	observability.ObserveOperation("refund", start, err)
	return res, err
}

func (e *Engine) refund(caller domain.Caller, id string) (RefundResult, error) {
	if !caller.Is(domain.RoleOperator) {
		return RefundResult{}, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	c, err := e.ledger.Get(id)
	if err != nil {
		return RefundResult{}, err
	}
	switch c.State {
	case domain.StateFailed:
		if c, err = e.ledger.BeginRefunding(id); err != nil {
			return RefundResult{}, err
		}
		e.persistCampaign(id)
		observability.CampaignsByState.WithLabelValues(string(domain.StateFailed)).Dec()
		observability.CampaignsByState.WithLabelValues(string(domain.StateRefunding)).Inc()
		observability.CampaignTransitions.WithLabelValues(string(domain.StateFailed), string(domain.StateRefunding)).Inc()
		e.emit(domain.Event{
			Type:       domain.EventCampaignStateChanged,
			CampaignID: id,
			Issuer:     c.Issuer,
			State:      domain.StateRefunding,
			Metadata:   map[string]string{"from": string(domain.StateFailed)},
		})
	case domain.StateRefunding:
		// retry path
	default:
		return RefundResult{}, domain.ErrCampaignNotFailed
	}

	now := e.now()
	first, err := e.escrow.BeginRefund(id, now)
	if err != nil {
		return RefundResult{}, err
	}
	if first {
		e.harvestLocked(id, now)
		acct, _ := e.escrow.Get(id)
		observability.EscrowHeld.Sub(float64(acct.TotalFunds))
	}
	// Same discipline as release: the refund flag is durable before any
	// transfer leaves the escrow.
	if err := e.persistSettlementFlags(id); err != nil {
		return RefundResult{}, err
	}

	acct, err := e.escrow.Get(id)
	if err != nil {
		return RefundResult{}, err
	}
	unpaid, err := e.ledger.UnrefundedLines(id)
	if err != nil {
		return RefundResult{}, err
	}
	if !first && len(unpaid) == 0 && acct.IssuerPaid && acct.PlatformPaid {
		return RefundResult{}, domain.ErrAlreadyRefunded
	}

	total := acct.TotalFunds
	yield := acct.YieldGenerated
	investorShare := yield * e.cfg.InvestorYieldBP / 10_000
	issuerShare := yield * e.cfg.IssuerYieldBP / 10_000

	log, err := e.ledger.Log(id)
	if err != nil {
		return RefundResult{}, err
	}
	var floorSum int64
	for _, line := range log {
		floorSum += investorShare * line.Amount / total
	}
	platformAmt := yield - floorSum - issuerShare

	res := RefundResult{CampaignID: id}
	escrowAcct := treasury.EscrowAccount(id)
	var firstErr error

	for _, idx := range unpaid {
		line := log[idx]
		amt := line.Amount + investorShare*line.Amount/total
		if err := e.bank.Transfer(escrowAcct, line.Investor, amt); err != nil {
			observability.PayoutFailures.Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := e.ledger.MarkRefunded(id, idx, now); err != nil {
			// Paid but unmarked would double-pay on retry; the transfer is
			// under the campaign lock, so this only fires on a logic error.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refund := domain.RefundLine{CampaignID: id, Investor: line.Investor, Amount: amt, PaidAt: now}
		e.escrow.AddRefundLine(refund)
		e.persistInvestmentLine(id, idx)
		e.persist("refund_line", func() error { return e.db.InsertRefundLine(refund) })
		e.persistTreasury(line.Investor, escrowAcct)
		res.Lines = append(res.Lines, refund)
		res.Total += amt
		e.emit(domain.Event{
			Type:       domain.EventRefundProcessed,
			CampaignID: id,
			Investor:   line.Investor,
			Amount:     amt,
		})
	}

	// The issuer and platform yield shares pay out on refund too: the split
	// applies at harvest regardless of campaign outcome.
	if !acct.IssuerPaid {
		paid := true
		if issuerShare > 0 {
			if err := e.bank.Transfer(escrowAcct, c.Issuer, issuerShare); err != nil {
				observability.PayoutFailures.Inc()
				if firstErr == nil {
					firstErr = err
				}
				paid = false
			}
		}
		if paid {
			e.escrow.MarkIssuerPaid(id)
			e.persistEscrow(id)
			e.persistTreasury(c.Issuer, escrowAcct)
		}
	}
	if !acct.PlatformPaid {
		paid := true
		if platformAmt > 0 {
			if err := e.bank.Transfer(escrowAcct, treasury.PlatformAccount, platformAmt); err != nil {
				observability.PayoutFailures.Inc()
				if firstErr == nil {
					firstErr = err
				}
				paid = false
			}
		}
		if paid {
			e.escrow.MarkPlatformPaid(id)
			e.persistEscrow(id)
			e.persistTreasury(treasury.PlatformAccount, escrowAcct)
		}
	}

	e.persistEscrow(id)
	e.persistTreasury(escrowAcct)
	e.log.Info().Str("campaign", id).Int64("refunded", res.Total).Int("lines", len(res.Lines)).Msg("refund processed")

	if firstErr != nil {
		return res, firstErr
	}
	res.Complete = true
	if first || len(res.Lines) > 0 {
		observability.Settlements.WithLabelValues("refund").Inc()
	}
	return res, nil
}

// harvestLocked performs the one-shot yield harvest for a campaign entering
// settlement: final compound, escrow yield recording, treasury mint. Caller
// holds the campaign lock.
func (e *Engine) harvestLocked(id string, now time.Time) {
	if !e.pool.Has(id) {
		return
	}
	st, err := e.pool.Get(id)
	if err != nil || st.Harvested {
		return
	}

	principal, yield, err := e.pool.Harvest(id, now)
	if err != nil {
		return
	}
	e.persistStake(id)
	observability.OpenStakes.Dec()
	if yield > 0 {
		e.escrow.RecordYield(id, yield)
		e.bank.Mint(treasury.EscrowAccount(id), yield)
	}
	e.emit(domain.Event{
		Type:       domain.EventYieldHarvested,
		CampaignID: id,
		Amount:     principal,
		Yield:      yield,
	})
}

// ─── Certificates ───────────────────────────────────────────────────────────

// IssueCertificates mints one non-transferable share certificate per investor
// with a nonzero final balance in a Successful campaign. Idempotent. The
// issuer itself or an operator may call it.
func (e *Engine) IssueCertificates(caller domain.Caller, id string) ([]domain.ShareCertificate, error) {
	c, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	self := caller.Is(domain.RoleIssuer) && caller.Addr == c.Issuer
	if !self && !caller.Is(domain.RoleOperator) {
		return nil, domain.ErrUnauthorized
	}

	unlock := e.lockCampaign(id)
	defer unlock()

	if c, err = e.ledger.Get(id); err != nil {
		return nil, err
	}
	if c.State != domain.StateSuccessful {
		return nil, domain.ErrCampaignNotSuccessful
	}

	investors, err := e.ledger.Investors(id)
	if err != nil {
		return nil, err
	}
	holdings := make([]certs.Holding, 0, len(investors))
	for _, inv := range investors {
		amount, err := e.ledger.InvestmentOf(id, inv)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, certs.Holding{Investor: inv, Amount: amount})
	}

	minted, err := e.certs.IssueAll(c, holdings, e.now())
	if err != nil {
		return nil, err
	}

	for _, cert := range minted {
		cert := cert
		e.persist("certificate", func() error { return e.db.UpsertCertificate(cert) })
		observability.CertificatesIssued.Inc()
		e.emit(domain.Event{
			Type:       domain.EventCertificateIssued,
			CampaignID: id,
			Investor:   cert.Owner,
			Amount:     cert.InvestmentAmount,
			Metadata: map[string]string{
				"token_id":     cert.TokenID,
				"share_count":  strconv.FormatInt(cert.ShareCount, 10),
				"voting_power": strconv.FormatInt(cert.VotingPower, 10),
			},
		})
	}
	if len(minted) > 0 {
		e.log.Info().Str("campaign", id).Int("certificates", len(minted)).Msg("share certificates issued")
	}
	return minted, nil
}

// RevokeCertificate deactivates a certificate. Admin only.
func (e *Engine) RevokeCertificate(caller domain.Caller, tokenID, reason string) (domain.ShareCertificate, error) {
	if !caller.Is(domain.RoleAdmin) {
		return domain.ShareCertificate{}, domain.ErrUnauthorized
	}

	now := e.now()
	cert, err := e.certs.Revoke(tokenID, reason, now)
	if err != nil {
		return domain.ShareCertificate{}, err
	}

	e.persist("certificate", func() error { return e.db.UpsertCertificate(cert) })
	e.persist("certificate_transfer", func() error {
		return e.db.InsertCertificateTransfer(domain.CertificateTransfer{
			TokenID: tokenID, From: cert.Owner, To: "", Reason: reason, At: now,
		})
	})
	observability.CertificatesRevoked.Inc()
	e.emit(domain.Event{
		Type:       domain.EventCertificateRevoked,
		CampaignID: cert.CampaignID,
		Investor:   cert.Owner,
		Metadata:   map[string]string{"token_id": tokenID, "reason": reason},
	})
	return cert, nil
}

// ReissueCertificate revokes a certificate and mints a replacement for a new
// owner with identical figures — the only ownership-change path. Admin only.
func (e *Engine) ReissueCertificate(caller domain.Caller, tokenID, newOwner, reason string) (domain.ShareCertificate, error) {
	if !caller.Is(domain.RoleAdmin) {
		return domain.ShareCertificate{}, domain.ErrUnauthorized
	}

	now := e.now()
	old, err := e.certs.Get(tokenID)
	if err != nil {
		return domain.ShareCertificate{}, err
	}
	cert, err := e.certs.Reissue(tokenID, newOwner, reason, now)
	if err != nil {
		return domain.ShareCertificate{}, err
	}

	revoked := old
	revoked.Active = false
	e.persist("certificate", func() error { return e.db.UpsertCertificate(revoked) })
	e.persist("certificate", func() error { return e.db.UpsertCertificate(cert) })
	e.persist("certificate_transfer", func() error {
		return e.db.InsertCertificateTransfer(domain.CertificateTransfer{
			TokenID: cert.TokenID, From: old.Owner, To: newOwner, Reason: reason, At: now,
		})
	})
	observability.CertificatesRevoked.Inc()
	observability.CertificatesIssued.Inc()
	e.emit(domain.Event{
		Type:       domain.EventCertificateReissued,
		CampaignID: cert.CampaignID,
		Investor:   newOwner,
		Metadata:   map[string]string{"old_token_id": tokenID, "token_id": cert.TokenID},
	})
	return cert, nil
}
