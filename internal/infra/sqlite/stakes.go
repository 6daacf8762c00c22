package sqlite

import (
	"database/sql"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Yield Stake Operations ─────────────────────────────────────────────────

// UpsertStake saves a yield-pool stake.
func (db *DB) UpsertStake(s domain.Stake) error {
	_, err := db.db.Exec(`
		INSERT INTO stakes (campaign_id, principal, yield_accrued, stake_time, last_compound_key, harvested)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET
			principal         = excluded.principal,
			yield_accrued     = excluded.yield_accrued,
			last_compound_key = excluded.last_compound_key,
			harvested         = excluded.harvested
	`, s.CampaignID, s.Principal, s.YieldAccrued,
		s.StakeTime.UTC().Format(time.RFC3339Nano),
		s.LastCompoundKey.UTC().Format(time.RFC3339Nano),
		boolInt(s.Harvested))
	return err
}

// ListStakes returns every stake.
func (db *DB) ListStakes() ([]domain.Stake, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, principal, yield_accrued, stake_time, last_compound_key, harvested
		FROM stakes ORDER BY stake_time, campaign_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Stake
	for rows.Next() {
		var s domain.Stake
		var staked, compounded sql.NullString
		var harvested int
		if err := rows.Scan(&s.CampaignID, &s.Principal, &s.YieldAccrued,
			&staked, &compounded, &harvested); err != nil {
			return nil, err
		}
		s.StakeTime = loadTime(staked)
		s.LastCompoundKey = loadTime(compounded)
		s.Harvested = harvested == 1
		out = append(out, s)
	}
	return out, rows.Err()
}
