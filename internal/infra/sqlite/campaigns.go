package sqlite

import (
	"database/sql"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Campaign Operations ────────────────────────────────────────────────────

// UpsertCampaign saves a campaign header.
func (db *DB) UpsertCampaign(c domain.Campaign) error {
	_, err := db.db.Exec(`
		INSERT INTO campaigns (id, issuer, company_name, metadata_ref, goal, min_investment, max_investment,
			duration_seconds, state, created_at, start_time, deadline, end_time, total_raised, investor_count, funds_released)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state          = excluded.state,
			start_time     = excluded.start_time,
			deadline       = excluded.deadline,
			end_time       = excluded.end_time,
			total_raised   = excluded.total_raised,
			investor_count = excluded.investor_count,
			funds_released = excluded.funds_released
	`, c.ID, c.Issuer, c.CompanyName, c.MetadataRef, c.Goal, c.MinInvestment, c.MaxInvestment,
		int64(c.Duration/time.Second), string(c.State),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		storeTime(c.StartTime), storeTime(c.Deadline), storeTime(c.EndTime),
		c.TotalRaised, c.InvestorCount, boolInt(c.FundsReleased))
	return err
}

// ListCampaigns returns every campaign header ordered by creation time.
func (db *DB) ListCampaigns() ([]domain.Campaign, error) {
	rows, err := db.db.Query(`
		SELECT id, issuer, company_name, metadata_ref, goal, min_investment, max_investment,
			duration_seconds, state, created_at, start_time, deadline, end_time, total_raised, investor_count, funds_released
		FROM campaigns ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		var durationSec int64
		var state string
		var created sql.NullString
		var start, deadline, end sql.NullString
		var released int
		if err := rows.Scan(&c.ID, &c.Issuer, &c.CompanyName, &c.MetadataRef,
			&c.Goal, &c.MinInvestment, &c.MaxInvestment, &durationSec, &state,
			&created, &start, &deadline, &end,
			&c.TotalRaised, &c.InvestorCount, &released); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(durationSec) * time.Second
		c.State = domain.CampaignState(state)
		c.CreatedAt = loadTime(created)
		c.StartTime = loadTime(start)
		c.Deadline = loadTime(deadline)
		c.EndTime = loadTime(end)
		c.FundsReleased = released == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Investment Log Operations ──────────────────────────────────────────────

// UpsertInvestment saves one investment log line. line is the zero-based
// position in the campaign's append-only log; the refund sweep rewrites
// existing lines to set the refunded marker.
func (db *DB) UpsertInvestment(line int, inv domain.Investment) error {
	_, err := db.db.Exec(`
		INSERT INTO investments (campaign_id, line, investor, amount, payment_method, payment_ref, recorded_at, refunded, refunded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id, line) DO UPDATE SET
			refunded    = excluded.refunded,
			refunded_at = excluded.refunded_at
	`, inv.CampaignID, line, inv.Investor, inv.Amount, string(inv.PaymentMethod), inv.PaymentRef,
		inv.Timestamp.UTC().Format(time.RFC3339Nano),
		boolInt(inv.Refunded), storeTime(inv.RefundedAt))
	return err
}

// ListInvestments returns all investment lines in campaign-then-line order,
// the order Restore expects.
func (db *DB) ListInvestments() ([]domain.Investment, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, investor, amount, payment_method, payment_ref, recorded_at, refunded, refunded_at
		FROM investments ORDER BY campaign_id, line
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		var method string
		var recorded, refundedAt sql.NullString
		var refunded int
		if err := rows.Scan(&inv.CampaignID, &inv.Investor, &inv.Amount,
			&method, &inv.PaymentRef, &recorded, &refunded, &refundedAt); err != nil {
			return nil, err
		}
		inv.PaymentMethod = domain.PaymentMethod(method)
		inv.Timestamp = loadTime(recorded)
		inv.Refunded = refunded == 1
		inv.RefundedAt = loadTime(refundedAt)
		out = append(out, inv)
	}
	return out, rows.Err()
}
