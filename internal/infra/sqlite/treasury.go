package sqlite

// ─── Treasury Operations ────────────────────────────────────────────────────

// UpsertTreasuryBalance saves one account's balance.
func (db *DB) UpsertTreasuryBalance(account string, balance int64) error {
	_, err := db.db.Exec(`
		INSERT INTO treasury_accounts (account, balance)
		VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET balance = excluded.balance
	`, account, balance)
	return err
}

// ListTreasuryBalances returns every account balance.
func (db *DB) ListTreasuryBalances() (map[string]int64, error) {
	rows, err := db.db.Query(`SELECT account, balance FROM treasury_accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var acct string
		var bal int64
		if err := rows.Scan(&acct, &bal); err != nil {
			return nil, err
		}
		out[acct] = bal
	}
	return out, rows.Err()
}
