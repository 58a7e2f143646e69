package ledger

import "sync"

// AccountHandle guards one account with its own mutex so independent
// accounts never contend, even if multiple workers apply concurrently.
type AccountHandle struct {
	mu      sync.Mutex
	account *Account
}

// Update runs fn with exclusive access to the account. The lock is held
// only for the duration of the call.
func (handle *AccountHandle) Update(fn func(*Account) error) error {
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return fn(handle.account)
}

// AccountSummary is one row of a ledger snapshot.
type AccountSummary struct {
	Client    ClientID `json:"client"`
	Available Currency `json:"available"`
	Held      Currency `json:"held"`
	Total     Currency `json:"total"`
	Locked    bool     `json:"locked"`
}

// AccountStore is a concurrent collection of accounts keyed by client id.
// Accounts are created lazily on first reference and never removed.
// Lookups take a read lock because operations on existing accounts are
// far more common than account creation.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[ClientID]*AccountHandle
}

// NewAccountStore creates an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[ClientID]*AccountHandle)}
}

// GetOrCreate returns the handle for the client, creating a zero-balance
// active account on first reference. Creation re-checks presence under
// the write lock, so two concurrent callers for the same unknown client
// observe the same single account.
func (store *AccountStore) GetOrCreate(clientID ClientID) *AccountHandle {
	store.mu.RLock()
	handle, ok := store.accounts[clientID]
	store.mu.RUnlock()
	if ok {
		return handle
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if handle, ok := store.accounts[clientID]; ok {
		return handle
	}
	handle = &AccountHandle{account: NewAccount(clientID)}
	store.accounts[clientID] = handle
	return handle
}

// Len returns the number of known accounts.
func (store *AccountStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.accounts)
}

// Snapshot exports every account's balances and lock status. Each account
// is locked individually while its fields are read; the result is
// consistent per account but not atomic across accounts, which is fine
// once the feed has drained and no writers remain.
func (store *AccountStore) Snapshot() []AccountSummary {
	store.mu.RLock()
	defer store.mu.RUnlock()

	summaries := make([]AccountSummary, 0, len(store.accounts))
	for _, handle := range store.accounts {
		_ = handle.Update(func(account *Account) error {
			summaries = append(summaries, AccountSummary{
				Client:    account.ClientID(),
				Available: account.Available(),
				Held:      account.Held(),
				Total:     account.Total(),
				Locked:    account.IsLocked(),
			})
			return nil
		})
	}
	return summaries
}

// VerifyAll checks every account's invariants and returns the first
// violation found.
func (store *AccountStore) VerifyAll() error {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, handle := range store.accounts {
		if err := handle.Update(func(account *Account) error {
			return account.CheckInvariants()
		}); err != nil {
			return err
		}
	}
	return nil
}
