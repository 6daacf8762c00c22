package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Event Journal Operations ───────────────────────────────────────────────

// InsertEvent journals one engine event. The full event is stored as JSON
// alongside indexed columns for querying.
func (db *DB) InsertEvent(e domain.Event) error {
	_, err := db.db.Exec(`
		INSERT OR IGNORE INTO events (id, type, at, campaign_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.Timestamp.UTC().Format(time.RFC3339Nano), e.CampaignID, e.String())
	return err
}

// RecentEvents returns up to limit most recent events, oldest first.
func (db *DB) RecentEvents(limit int) ([]domain.Event, error) {
	rows, err := db.db.Query(`
		SELECT payload FROM (
			SELECT payload, at FROM events ORDER BY at DESC, id DESC LIMIT ?
		) ORDER BY at
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e domain.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CampaignEvents returns all journaled events for one campaign in order.
func (db *DB) CampaignEvents(campaignID string) ([]domain.Event, error) {
	rows, err := db.db.Query(`
		SELECT payload FROM events WHERE campaign_id = ? ORDER BY at, id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e domain.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventCount returns the number of journaled events.
func (db *DB) EventCount() (int64, error) {
	var n int64
	err := db.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
