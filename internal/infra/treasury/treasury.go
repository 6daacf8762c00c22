// Package treasury implements the value-transfer backend behind the engine.
//
// The Bank is a double-entry account book: escrow custody accounts, issuer
// and investor wallets, and the platform treasury are all rows in it. The
// engine never moves value directly; every payout goes through Transfer so
// that a failing recipient surfaces as ErrPayoutFailed and the caller's
// per-line paid flags decide what to re-attempt.
//
// Yield credits enter the book through Mint — the external yield source is
// outside the engine's custody, so harvested yield is new value from the
// book's perspective.
package treasury

import (
	"fmt"
	"sync"

	"github.com/fundra-network/fundra/internal/domain"
)

// PlatformAccount is the book account that collects platform fees and the
// platform's yield share.
const PlatformAccount = "platform:treasury"

// EscrowAccount returns the book account holding a campaign's escrowed funds.
func EscrowAccount(campaignID string) string {
	return "escrow:" + campaignID
}

// Bank is an in-memory account book.
type Bank struct {
	mu       sync.RWMutex
	accounts map[string]int64
	blocked  map[string]bool
	minted   int64
}

// New creates an empty bank.
func New() *Bank {
	return &Bank{
		accounts: make(map[string]int64),
		blocked:  make(map[string]bool),
	}
}

// Credit records value arriving from outside the book (an investor paying in
// through a payment rail).
func (b *Bank) Credit(account string, amount int64) error {
	if account == "" {
		return domain.ErrZeroAddress
	}
	if amount <= 0 {
		return domain.ErrZeroAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts[account] += amount
	return nil
}

// Mint records yield credited by the external yield source.
func (b *Bank) Mint(account string, amount int64) error {
	if err := b.Credit(account, amount); err != nil {
		return err
	}
	b.mu.Lock()
	b.minted += amount
	b.mu.Unlock()
	return nil
}

// Transfer moves value between book accounts. Fails with ErrPayoutFailed if
// the recipient rejects payment or the source cannot cover the amount.
func (b *Bank) Transfer(from, to string, amount int64) error {
	if from == "" || to == "" {
		return domain.ErrZeroAddress
	}
	if amount <= 0 {
		return domain.ErrZeroAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blocked[to] {
		return fmt.Errorf("%w: recipient %s rejected payment", domain.ErrPayoutFailed, to)
	}
	if b.accounts[from] < amount {
		return fmt.Errorf("%w: account %s holds %d, need %d", domain.ErrPayoutFailed, from, b.accounts[from], amount)
	}
	b.accounts[from] -= amount
	b.accounts[to] += amount
	return nil
}

// Balance returns an account's current balance.
func (b *Bank) Balance(account string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.accounts[account]
}

// Minted returns the total yield value minted into the book.
func (b *Bank) Minted() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.minted
}

// Block makes an account reject incoming transfers. Used to exercise payout
// failure and retry paths.
func (b *Bank) Block(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.blocked[account] = true
}

// Unblock lifts a Block.
func (b *Bank) Unblock(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blocked, account)
}

// Accounts returns a snapshot of all non-zero balances.
func (b *Bank) Accounts() map[string]int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]int64, len(b.accounts))
	for acct, bal := range b.accounts {
		if bal != 0 {
			out[acct] = bal
		}
	}
	return out
}

// Restore replaces the book's balances from persisted state. Boot-time only,
// before the bank is shared.
func (b *Bank) Restore(balances map[string]int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts = make(map[string]int64, len(balances))
	for acct, bal := range balances {
		b.accounts[acct] = bal
	}
}
