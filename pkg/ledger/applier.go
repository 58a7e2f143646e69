package ledger

import "fmt"

// Applier validates and applies a single transaction against a single
// account. Validation always precedes mutation, so a failed call leaves
// the account untouched and each call is atomic with respect to the
// account it targets.
type Applier struct {
	retainDisputes bool
}

// ApplierOption configures an Applier instance.
type ApplierOption func(*Applier)

// WithRetainedDisputes keeps transaction ids in the dispute set after a
// successful resolve or chargeback, reproducing the historical behavior
// where the same dispute could be settled more than once. The default
// closes a dispute on settlement so a second resolve or chargeback fails
// with ErrNotDisputed.
func WithRetainedDisputes() ApplierOption {
	return func(applier *Applier) {
		applier.retainDisputes = true
	}
}

// NewApplier wires an Applier.
func NewApplier(options ...ApplierOption) *Applier {
	applier := &Applier{}
	for _, option := range options {
		if option != nil {
			option(applier)
		}
	}
	return applier
}

// Apply runs the guarded transition for one transaction. On success the
// account balances and bookkeeping are updated and the transaction is
// appended to the audit history; on failure a domain error is returned
// and the account is left exactly as it was.
func (applier *Applier) Apply(transaction Transaction, account *Account) error {
	if account.IsLocked() {
		return fmt.Errorf("%w: client %d", ErrAccountLocked, transaction.ClientID)
	}
	if transaction.Type.CarriesAmount() && transaction.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s for tx %d",
			ErrInvalidAmount, transaction.Amount, transaction.ID)
	}

	var err error
	switch transaction.Type {
	case TypeDeposit:
		err = applier.applyDeposit(transaction, account)
	case TypeWithdrawal:
		err = applier.applyWithdrawal(transaction, account)
	case TypeDispute:
		err = applier.applyDispute(transaction, account)
	case TypeResolve:
		err = applier.applyResolve(transaction, account)
	case TypeChargeback:
		err = applier.applyChargeback(transaction, account)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidTransactionType, transaction.Type)
	}
	if err != nil {
		return err
	}

	account.history = append(account.history, transaction)
	return nil
}

func (applier *Applier) applyDeposit(transaction Transaction, account *Account) error {
	if _, exists := account.transactions[transaction.ID]; exists {
		return fmt.Errorf("%w: tx %d", ErrDuplicateTransaction, transaction.ID)
	}
	account.available = account.available.Add(transaction.Amount)
	account.total = account.total.Add(transaction.Amount)
	account.transactions[transaction.ID] = transaction
	return nil
}

func (applier *Applier) applyWithdrawal(transaction Transaction, account *Account) error {
	if _, exists := account.transactions[transaction.ID]; exists {
		return fmt.Errorf("%w: tx %d", ErrDuplicateTransaction, transaction.ID)
	}
	if account.available.Cmp(transaction.Amount) < 0 {
		return fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientFunds, account.available, transaction.Amount)
	}
	account.available = account.available.Sub(transaction.Amount)
	account.total = account.total.Sub(transaction.Amount)
	account.transactions[transaction.ID] = transaction
	return nil
}

func (applier *Applier) applyDispute(transaction Transaction, account *Account) error {
	referenced, exists := account.transactions[transaction.ID]
	if !exists {
		return fmt.Errorf("%w: tx %d", ErrTransactionNotFound, transaction.ID)
	}
	if _, disputed := account.disputes[transaction.ID]; disputed {
		return fmt.Errorf("%w: tx %d", ErrAlreadyDisputed, transaction.ID)
	}
	account.disputes[transaction.ID] = struct{}{}
	account.held = account.held.Add(referenced.Amount)
	account.available = account.available.Sub(referenced.Amount)
	return nil
}

func (applier *Applier) applyResolve(transaction Transaction, account *Account) error {
	if _, disputed := account.disputes[transaction.ID]; !disputed {
		return fmt.Errorf("%w: tx %d", ErrNotDisputed, transaction.ID)
	}
	referenced := account.transactions[transaction.ID]
	account.held = account.held.Sub(referenced.Amount)
	account.available = account.available.Add(referenced.Amount)
	if !applier.retainDisputes {
		delete(account.disputes, transaction.ID)
	}
	return nil
}

func (applier *Applier) applyChargeback(transaction Transaction, account *Account) error {
	if _, disputed := account.disputes[transaction.ID]; !disputed {
		return fmt.Errorf("%w: tx %d", ErrNotDisputed, transaction.ID)
	}
	referenced := account.transactions[transaction.ID]
	account.held = account.held.Sub(referenced.Amount)
	account.total = account.total.Sub(referenced.Amount)
	if !applier.retainDisputes {
		delete(account.disputes, transaction.ID)
	}
	account.freeze()
	return nil
}
