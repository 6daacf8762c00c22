package sqlite

import (
	"database/sql"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Certificate Operations ─────────────────────────────────────────────────

// UpsertCertificate saves a share certificate.
func (db *DB) UpsertCertificate(c domain.ShareCertificate) error {
	_, err := db.db.Exec(`
		INSERT INTO certificates (token_id, campaign_id, company_name, owner,
			investment_amount, share_count, voting_power, token_uri, issued_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			owner  = excluded.owner,
			active = excluded.active
	`, c.TokenID, c.CampaignID, c.CompanyName, c.Owner,
		c.InvestmentAmount, c.ShareCount, c.VotingPower, c.TokenURI,
		c.IssuedAt.UTC().Format(time.RFC3339Nano), boolInt(c.Active))
	return err
}

// ListCertificates returns every certificate ordered by issuance.
func (db *DB) ListCertificates() ([]domain.ShareCertificate, error) {
	rows, err := db.db.Query(`
		SELECT token_id, campaign_id, company_name, owner,
			investment_amount, share_count, voting_power, token_uri, issued_at, active
		FROM certificates ORDER BY issued_at, token_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ShareCertificate
	for rows.Next() {
		var c domain.ShareCertificate
		var issued sql.NullString
		var active int
		if err := rows.Scan(&c.TokenID, &c.CampaignID, &c.CompanyName, &c.Owner,
			&c.InvestmentAmount, &c.ShareCount, &c.VotingPower, &c.TokenURI,
			&issued, &active); err != nil {
			return nil, err
		}
		c.IssuedAt = loadTime(issued)
		c.Active = active == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCertificateTransfer records an administrative ownership change.
func (db *DB) InsertCertificateTransfer(t domain.CertificateTransfer) error {
	_, err := db.db.Exec(`
		INSERT INTO certificate_transfers (token_id, from_owner, to_owner, reason, at)
		VALUES (?, ?, ?, ?, ?)
	`, t.TokenID, t.From, t.To, t.Reason, t.At.UTC().Format(time.RFC3339Nano))
	return err
}

// ListCertificateTransfers returns the transfer history in order.
func (db *DB) ListCertificateTransfers() ([]domain.CertificateTransfer, error) {
	rows, err := db.db.Query(`
		SELECT token_id, from_owner, to_owner, reason, at FROM certificate_transfers ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CertificateTransfer
	for rows.Next() {
		var t domain.CertificateTransfer
		var at sql.NullString
		if err := rows.Scan(&t.TokenID, &t.From, &t.To, &t.Reason, &at); err != nil {
			return nil, err
		}
		t.At = loadTime(at)
		out = append(out, t)
	}
	return out, rows.Err()
}
