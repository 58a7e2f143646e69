package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// ClientID identifies an account owner. Identities are stable and never
// reused across accounts.
type ClientID uint64

// ParseClientID parses an unsigned integer client identity.
func ParseClientID(raw string) (ClientID, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClientID, raw)
	}
	return ClientID(value), nil
}

// TransactionID identifies a transaction within a client's history.
type TransactionID uint32

// ParseTransactionID parses an unsigned integer transaction identity.
func ParseTransactionID(raw string) (TransactionID, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTransactionID, raw)
	}
	return TransactionID(value), nil
}

// TransactionType enumerates the requested ledger operations.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDispute    TransactionType = "dispute"
	TypeResolve    TransactionType = "resolve"
	TypeChargeback TransactionType = "chargeback"
)

// ParseTransactionType parses a case-insensitive transaction-type token.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeDeposit:
		return TypeDeposit, nil
	case TypeWithdrawal:
		return TypeWithdrawal, nil
	case TypeDispute:
		return TypeDispute, nil
	case TypeResolve:
		return TypeResolve, nil
	case TypeChargeback:
		return TypeChargeback, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
	}
}

// CarriesAmount reports whether the type moves a new amount of funds.
// Dispute, resolve and chargeback reference a prior transaction instead;
// their own amount field is zero and ignored.
func (transactionType TransactionType) CarriesAmount() bool {
	return transactionType == TypeDeposit || transactionType == TypeWithdrawal
}

// Transaction is an immutable record describing one requested ledger
// operation. It is never mutated after creation; the account keeps copies
// for its audit history.
type Transaction struct {
	Type     TransactionType `json:"type"`
	ClientID ClientID        `json:"client"`
	ID       TransactionID   `json:"tx"`
	Amount   Currency        `json:"amount"`
}
