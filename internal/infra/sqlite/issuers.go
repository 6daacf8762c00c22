package sqlite

import (
	"database/sql"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Issuer Operations ──────────────────────────────────────────────────────

// UpsertIssuer saves an issuer's full record.
func (db *DB) UpsertIssuer(is domain.Issuer) error {
	_, err := db.db.Exec(`
		INSERT INTO issuers (address, credential_hash, disclosure_hash, registered_at, active, last_campaign_year, locked, active_campaign)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			credential_hash    = excluded.credential_hash,
			disclosure_hash    = excluded.disclosure_hash,
			active             = excluded.active,
			last_campaign_year = excluded.last_campaign_year,
			locked             = excluded.locked,
			active_campaign    = excluded.active_campaign
	`, is.Address, is.CredentialHash, is.DisclosureHash,
		is.RegisteredAt.UTC().Format(time.RFC3339Nano),
		boolInt(is.Active), is.LastCampaignYear, boolInt(is.Locked), is.ActiveCampaign)
	return err
}

// ListIssuers returns every issuer ordered by registration time.
func (db *DB) ListIssuers() ([]domain.Issuer, error) {
	rows, err := db.db.Query(`
		SELECT address, credential_hash, disclosure_hash, registered_at, active, last_campaign_year, locked, active_campaign
		FROM issuers ORDER BY registered_at, address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Issuer
	for rows.Next() {
		var is domain.Issuer
		var registered sql.NullString
		var active, locked int
		if err := rows.Scan(&is.Address, &is.CredentialHash, &is.DisclosureHash,
			&registered, &active, &is.LastCampaignYear, &locked, &is.ActiveCampaign); err != nil {
			return nil, err
		}
		is.RegisteredAt = loadTime(registered)
		is.Active = active == 1
		is.Locked = locked == 1
		out = append(out, is)
	}
	return out, rows.Err()
}
