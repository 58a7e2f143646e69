package ledger

import "fmt"

// AccountStatus defines the account lifecycle. The only transition is
// Active to Locked, triggered by a successful chargeback.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusLocked AccountStatus = "locked"
)

// Account holds the mutable ledger state for a single client: balances,
// status, the index of amount-bearing transactions, the set of disputed
// transaction ids, and the append-only audit history.
//
// All mutation goes through Applier.Apply; the type itself only keeps
// books. Fields are unexported so callers outside this package cannot
// bypass the application rules.
type Account struct {
	clientID     ClientID
	available    Currency
	held         Currency
	total        Currency
	status       AccountStatus
	transactions map[TransactionID]Transaction
	disputes     map[TransactionID]struct{}
	history      []Transaction
}

// NewAccount creates a zero-balance active account for the client.
func NewAccount(clientID ClientID) *Account {
	return &Account{
		clientID:     clientID,
		status:       AccountStatusActive,
		transactions: make(map[TransactionID]Transaction),
		disputes:     make(map[TransactionID]struct{}),
	}
}

// ClientID returns the owning client identity.
func (account *Account) ClientID() ClientID {
	return account.clientID
}

// Available returns the funds the client may currently withdraw.
func (account *Account) Available() Currency {
	return account.available
}

// Held returns the funds frozen due to active disputes.
func (account *Account) Held() Currency {
	return account.held
}

// Total returns the full balance, available plus held.
func (account *Account) Total() Currency {
	return account.total
}

// Status returns the current lifecycle status.
func (account *Account) Status() AccountStatus {
	return account.status
}

// IsLocked reports whether a chargeback has frozen the account.
func (account *Account) IsLocked() bool {
	return account.status == AccountStatusLocked
}

// Lookup returns the amount-bearing transaction recorded under id.
func (account *Account) Lookup(id TransactionID) (Transaction, bool) {
	transaction, ok := account.transactions[id]
	return transaction, ok
}

// Disputed reports whether id is currently under dispute.
func (account *Account) Disputed(id TransactionID) bool {
	_, ok := account.disputes[id]
	return ok
}

// History returns a copy of the audit log in application order.
func (account *Account) History() []Transaction {
	history := make([]Transaction, len(account.history))
	copy(history, account.history)
	return history
}

// freeze transitions the account to Locked. Only the apply logic calls it.
func (account *Account) freeze() {
	account.status = AccountStatusLocked
}

// CheckInvariants verifies the account's internal consistency:
// available == total - held, held never negative, locked exactly when the
// last applied transaction is a chargeback, and every disputed id present
// in the transaction index.
func (account *Account) CheckInvariants() error {
	if !account.available.Equal(account.total.Sub(account.held)) {
		return fmt.Errorf("%w: available %s != total %s - held %s",
			ErrInvariantViolated, account.available, account.total, account.held)
	}
	if account.held.IsNegative() {
		return fmt.Errorf("%w: held %s is negative", ErrInvariantViolated, account.held)
	}
	locked := account.IsLocked()
	chargedBack := len(account.history) > 0 &&
		account.history[len(account.history)-1].Type == TypeChargeback
	if locked != chargedBack {
		return fmt.Errorf("%w: locked=%v but last history entry chargeback=%v",
			ErrInvariantViolated, locked, chargedBack)
	}
	for id := range account.disputes {
		if _, ok := account.transactions[id]; !ok {
			return fmt.Errorf("%w: disputed id %d missing from transaction index",
				ErrInvariantViolated, id)
		}
	}
	return nil
}
