package sqlite

import (
	"database/sql"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
	"github.com/fundra-network/fundra/internal/infra/escrow"
)

// ─── Escrow Account Operations ──────────────────────────────────────────────

// UpsertEscrowAccount saves an escrow account's custody state.
func (db *DB) UpsertEscrowAccount(a domain.EscrowAccount) error {
	_, err := db.db.Exec(`
		INSERT INTO escrow_accounts (campaign_id, issuer, total_funds, yield_generated,
			funds_released, refund_initiated, issuer_paid, platform_paid, created_at, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET
			total_funds      = excluded.total_funds,
			yield_generated  = excluded.yield_generated,
			funds_released   = excluded.funds_released,
			refund_initiated = excluded.refund_initiated,
			issuer_paid      = excluded.issuer_paid,
			platform_paid    = excluded.platform_paid,
			settled_at       = excluded.settled_at
	`, a.CampaignID, a.Issuer, a.TotalFunds, a.YieldGenerated,
		boolInt(a.FundsReleased), boolInt(a.RefundInitiated),
		boolInt(a.IssuerPaid), boolInt(a.PlatformPaid),
		a.CreatedAt.UTC().Format(time.RFC3339Nano), storeTime(a.SettledAt))
	return err
}

// ListEscrowAccounts returns every escrow account.
func (db *DB) ListEscrowAccounts() ([]domain.EscrowAccount, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, issuer, total_funds, yield_generated,
			funds_released, refund_initiated, issuer_paid, platform_paid, created_at, settled_at
		FROM escrow_accounts ORDER BY created_at, campaign_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EscrowAccount
	for rows.Next() {
		var a domain.EscrowAccount
		var released, refunding, issuerPaid, platformPaid int
		var created, settled sql.NullString
		if err := rows.Scan(&a.CampaignID, &a.Issuer, &a.TotalFunds, &a.YieldGenerated,
			&released, &refunding, &issuerPaid, &platformPaid, &created, &settled); err != nil {
			return nil, err
		}
		a.FundsReleased = released == 1
		a.RefundInitiated = refunding == 1
		a.IssuerPaid = issuerPaid == 1
		a.PlatformPaid = platformPaid == 1
		a.CreatedAt = loadTime(created)
		a.SettledAt = loadTime(settled)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Deposit Operations ─────────────────────────────────────────────────────

// UpsertEscrowDeposit saves one investor's pooled balance and yield marker.
func (db *DB) UpsertEscrowDeposit(row escrow.DepositRow) error {
	_, err := db.db.Exec(`
		INSERT INTO escrow_deposits (campaign_id, investor, amount, yield_paid)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(campaign_id, investor) DO UPDATE SET
			amount     = excluded.amount,
			yield_paid = excluded.yield_paid
	`, row.CampaignID, row.Investor, row.Amount, boolInt(row.YieldPaid))
	return err
}

// ListEscrowDeposits returns all deposit rows grouped by campaign.
func (db *DB) ListEscrowDeposits() ([]escrow.DepositRow, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, investor, amount, yield_paid
		FROM escrow_deposits ORDER BY campaign_id, rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []escrow.DepositRow
	for rows.Next() {
		var r escrow.DepositRow
		var paid int
		if err := rows.Scan(&r.CampaignID, &r.Investor, &r.Amount, &paid); err != nil {
			return nil, err
		}
		r.YieldPaid = paid == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Refund Operations ──────────────────────────────────────────────────────

// InsertRefundLine records one completed refund payout.
func (db *DB) InsertRefundLine(r domain.RefundLine) error {
	_, err := db.db.Exec(`
		INSERT INTO refund_lines (campaign_id, investor, amount, paid_at)
		VALUES (?, ?, ?, ?)
	`, r.CampaignID, r.Investor, r.Amount, r.PaidAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ListRefundLines returns all completed refund payouts in payout order.
func (db *DB) ListRefundLines() ([]domain.RefundLine, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, investor, amount, paid_at FROM refund_lines ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefundLine
	for rows.Next() {
		var r domain.RefundLine
		var paid sql.NullString
		if err := rows.Scan(&r.CampaignID, &r.Investor, &r.Amount, &paid); err != nil {
			return nil, err
		}
		r.PaidAt = loadTime(paid)
		out = append(out, r)
	}
	return out, rows.Err()
}
