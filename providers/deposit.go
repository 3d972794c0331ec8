package providers

import "sync"

// Ledger is the narrow hold/release/burn/credit interface the registry,
// the file-system pallet's storage-request deposits and payment-stream
// charges need from a balances pallet. It is not a balances pallet itself:
// there is no transfer and no issuance. Credit adds to an account's
// available balance; payments uses it to pay providers and the treasury,
// and tests use it to fund accounts.
type Ledger struct {
	mu        sync.Mutex
	available map[AccountId]uint64
	held      map[AccountId]uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		available: make(map[AccountId]uint64),
		held:      make(map[AccountId]uint64),
	}
}

// Credit adds to an account's available (unheld) balance.
func (l *Ledger) Credit(account AccountId, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available[account] += amount
}

// Hold moves amount from available to held, failing if the account doesn't
// have enough available balance.
func (l *Ledger) Hold(account AccountId, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.available[account] < amount {
		return ErrNotEnoughBalance
	}
	l.available[account] -= amount
	l.held[account] += amount
	return nil
}

// Release moves amount from held back to available.
func (l *Ledger) Release(account AccountId, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[account] < amount {
		return ErrDepositTooLow
	}
	l.held[account] -= amount
	l.available[account] += amount
	return nil
}

// Burn permanently removes amount from held, clamping to whatever is
// actually held rather than erroring, since a slash must always succeed:
// returns the amount actually burned.
func (l *Ledger) Burn(account AccountId, amount uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	burned := amount
	if l.held[account] < burned {
		burned = l.held[account]
	}
	l.held[account] -= burned
	return burned
}

// Held returns the current held balance for account.
func (l *Ledger) Held(account AccountId) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[account]
}

// Available returns the current available balance for account.
func (l *Ledger) Available(account AccountId) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available[account]
}
