package ledger

import "sync"

// accountLocks serializes ledger mutations per account. SQLite gives no
// compare-and-swap across the funds and positions tables, so concurrent
// buys or sells for the same account are forced through one critical
// section; different accounts proceed in parallel.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

// forAccount returns the mutex for an account, creating it on first use.
// Locks are never released from the map; the account space is small and
// bounded by the client base.
func (a *accountLocks) forAccount(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[accountID] = lock
	}
	return lock
}
