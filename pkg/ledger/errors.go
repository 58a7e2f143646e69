package ledger

import "errors"

// Domain-level error values returned when a transaction is rejected.
var (
	ErrAccountLocked        = errors.New("account locked")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrAlreadyDisputed      = errors.New("transaction already disputed")
	ErrNotDisputed          = errors.New("transaction not disputed")
)

// Parse-level error values returned by the feed codec constructors.
var (
	ErrInvalidClientID        = errors.New("invalid client id")
	ErrInvalidTransactionID   = errors.New("invalid transaction id")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// ErrInvariantViolated reports an internally inconsistent account.
var ErrInvariantViolated = errors.New("account invariant violated")
