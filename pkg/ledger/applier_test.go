package ledger

import (
	"errors"
	"testing"
)

const testClient = ClientID(1)

func deposit(t *testing.T, id TransactionID, amount string) Transaction {
	t.Helper()
	return Transaction{Type: TypeDeposit, ClientID: testClient, ID: id, Amount: mustCurrency(t, amount)}
}

func withdrawal(t *testing.T, id TransactionID, amount string) Transaction {
	t.Helper()
	return Transaction{Type: TypeWithdrawal, ClientID: testClient, ID: id, Amount: mustCurrency(t, amount)}
}

func reference(transactionType TransactionType, id TransactionID) Transaction {
	return Transaction{Type: transactionType, ClientID: testClient, ID: id}
}

func mustApply(t *testing.T, applier *Applier, account *Account, transactions ...Transaction) {
	t.Helper()
	for _, transaction := range transactions {
		if err := applier.Apply(transaction, account); err != nil {
			t.Fatalf("apply %s tx %d: %v", transaction.Type, transaction.ID, err)
		}
	}
}

func assertBalances(t *testing.T, account *Account, available, held, total string) {
	t.Helper()
	if !account.Available().Equal(mustCurrency(t, available)) {
		t.Fatalf("available: expected %s, got %s", available, account.Available())
	}
	if !account.Held().Equal(mustCurrency(t, held)) {
		t.Fatalf("held: expected %s, got %s", held, account.Held())
	}
	if !account.Total().Equal(mustCurrency(t, total)) {
		t.Fatalf("total: expected %s, got %s", total, account.Total())
	}
	if err := account.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

type accountState struct {
	available  string
	held       string
	total      string
	status     AccountStatus
	historyLen int
}

func captureState(account *Account) accountState {
	return accountState{
		available:  account.Available().String(),
		held:       account.Held().String(),
		total:      account.Total().String(),
		status:     account.Status(),
		historyLen: len(account.History()),
	}
}

func assertUnchanged(t *testing.T, account *Account, before accountState) {
	t.Helper()
	after := captureState(account)
	if after != before {
		t.Fatalf("account changed on failure: before %+v, after %+v", before, after)
	}
}

func TestDepositAndWithdrawal(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)

	mustApply(t, applier, account,
		deposit(t, 1, "1.0"),
		deposit(t, 3, "2.0"),
		withdrawal(t, 4, "1.5"),
	)
	assertBalances(t, account, "1.5", "0", "1.5")
	if account.IsLocked() {
		t.Fatal("expected active account")
	}
	if len(account.History()) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(account.History()))
	}
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account, deposit(t, 1, "2.0"))

	before := captureState(account)
	err := applier.Apply(withdrawal(t, 2, "3.0"), account)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	assertUnchanged(t, account, before)
	assertBalances(t, account, "2.0", "0", "2.0")
}

func TestDuplicateTransactionID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		duplicate func(t *testing.T) Transaction
	}{
		{name: "deposit reusing deposit id", duplicate: func(t *testing.T) Transaction {
			return deposit(t, 1, "5.0")
		}},
		{name: "withdrawal reusing deposit id", duplicate: func(t *testing.T) Transaction {
			return withdrawal(t, 1, "5.0")
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			applier := NewApplier()
			account := NewAccount(testClient)
			mustApply(t, applier, account, deposit(t, 1, "10.0"))

			before := captureState(account)
			err := applier.Apply(tc.duplicate(t), account)
			if !errors.Is(err, ErrDuplicateTransaction) {
				t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
			}
			assertUnchanged(t, account, before)
		})
	}
}

func TestNegativeAmountRejected(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account, deposit(t, 1, "10.0"))

	before := captureState(account)
	for _, transaction := range []Transaction{deposit(t, 2, "-1.0"), withdrawal(t, 3, "-1.0")} {
		if err := applier.Apply(transaction, account); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("tx %d: expected ErrInvalidAmount, got %v", transaction.ID, err)
		}
	}
	assertUnchanged(t, account, before)
}

func TestDisputeUnknownTransaction(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account, deposit(t, 1, "10.0"))

	before := captureState(account)
	err := applier.Apply(reference(TypeDispute, 99), account)
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	assertUnchanged(t, account, before)
}

func TestDisputeAlreadyDisputed(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account, deposit(t, 1, "10.0"), reference(TypeDispute, 1))

	before := captureState(account)
	err := applier.Apply(reference(TypeDispute, 1), account)
	if !errors.Is(err, ErrAlreadyDisputed) {
		t.Fatalf("expected ErrAlreadyDisputed, got %v", err)
	}
	assertUnchanged(t, account, before)
}

func TestResolveAndChargebackRequireDispute(t *testing.T) {
	t.Parallel()
	for _, transactionType := range []TransactionType{TypeResolve, TypeChargeback} {
		transactionType := transactionType
		t.Run(string(transactionType), func(t *testing.T) {
			t.Parallel()
			applier := NewApplier()
			account := NewAccount(testClient)
			mustApply(t, applier, account, deposit(t, 1, "10.0"))

			before := captureState(account)
			err := applier.Apply(reference(transactionType, 1), account)
			if !errors.Is(err, ErrNotDisputed) {
				t.Fatalf("expected ErrNotDisputed, got %v", err)
			}
			assertUnchanged(t, account, before)
		})
	}
}

func TestDisputeThenResolve(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)

	mustApply(t, applier, account, deposit(t, 1, "100.0"), reference(TypeDispute, 1))
	assertBalances(t, account, "0", "100.0", "100.0")

	mustApply(t, applier, account, reference(TypeResolve, 1))
	assertBalances(t, account, "100.0", "0", "100.0")
	if account.IsLocked() {
		t.Fatal("expected active account after resolve")
	}
}

func TestDisputeThenChargeback(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)

	mustApply(t, applier, account, deposit(t, 1, "100.0"), reference(TypeDispute, 1))
	assertBalances(t, account, "0", "100.0", "100.0")

	mustApply(t, applier, account, reference(TypeChargeback, 1))
	assertBalances(t, account, "0", "0", "0")
	if !account.IsLocked() {
		t.Fatal("expected locked account after chargeback")
	}

	before := captureState(account)
	err := applier.Apply(deposit(t, 2, "5.0"), account)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	assertUnchanged(t, account, before)
}

func TestLockedAccountRejectsEveryType(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account,
		deposit(t, 1, "100.0"),
		reference(TypeDispute, 1),
		reference(TypeChargeback, 1),
	)

	attempts := []Transaction{
		deposit(t, 2, "1.0"),
		withdrawal(t, 3, "1.0"),
		reference(TypeDispute, 1),
		reference(TypeResolve, 1),
		reference(TypeChargeback, 1),
	}
	for _, transaction := range attempts {
		if err := applier.Apply(transaction, account); !errors.Is(err, ErrAccountLocked) {
			t.Fatalf("%s: expected ErrAccountLocked, got %v", transaction.Type, err)
		}
	}
}

func TestDefaultModeClosesDisputeOnResolve(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account,
		deposit(t, 1, "100.0"),
		reference(TypeDispute, 1),
		reference(TypeResolve, 1),
	)

	err := applier.Apply(reference(TypeResolve, 1), account)
	if !errors.Is(err, ErrNotDisputed) {
		t.Fatalf("expected ErrNotDisputed on second resolve, got %v", err)
	}
	if account.Disputed(1) {
		t.Fatal("expected dispute to be closed after resolve")
	}

	// A settled transaction may be disputed again from scratch.
	mustApply(t, applier, account, reference(TypeDispute, 1))
	assertBalances(t, account, "0", "100.0", "100.0")
}

func TestRetainedDisputesReproduceLegacyBehavior(t *testing.T) {
	t.Parallel()
	applier := NewApplier(WithRetainedDisputes())
	account := NewAccount(testClient)
	mustApply(t, applier, account,
		deposit(t, 1, "100.0"),
		reference(TypeDispute, 1),
		reference(TypeResolve, 1),
	)

	if !account.Disputed(1) {
		t.Fatal("expected dispute id to be retained")
	}

	// Re-disputing is blocked because the id never left the set.
	if err := applier.Apply(reference(TypeDispute, 1), account); !errors.Is(err, ErrAlreadyDisputed) {
		t.Fatalf("expected ErrAlreadyDisputed, got %v", err)
	}

	// The latent defect: a second resolve succeeds and drives held negative.
	mustApply(t, applier, account, reference(TypeResolve, 1))
	if !account.Held().IsNegative() {
		t.Fatalf("expected negative held, got %s", account.Held())
	}
	if !account.Held().Equal(mustCurrency(t, "-100.0")) {
		t.Fatalf("expected held -100.0, got %s", account.Held())
	}
	if err := account.CheckInvariants(); !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestHistoryRecordsOuterTransaction(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)
	mustApply(t, applier, account, deposit(t, 1, "50.0"), reference(TypeDispute, 1))

	history := account.History()
	last := history[len(history)-1]
	if last.Type != TypeDispute || last.ID != 1 {
		t.Fatalf("expected dispute tx 1 at history tail, got %s tx %d", last.Type, last.ID)
	}
}

func TestReplayReproducesState(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)

	mustApply(t, applier, account,
		deposit(t, 1, "100.0"),
		deposit(t, 2, "40.5"),
		withdrawal(t, 3, "15.25"),
		reference(TypeDispute, 2),
		reference(TypeResolve, 2),
		reference(TypeDispute, 1),
	)
	// Rejected transactions must leave no trace for replay to be sound.
	if err := applier.Apply(withdrawal(t, 4, "999"), account); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	replayed := NewAccount(testClient)
	for _, transaction := range account.History() {
		if err := applier.Apply(transaction, replayed); err != nil {
			t.Fatalf("replay %s tx %d: %v", transaction.Type, transaction.ID, err)
		}
	}

	if captureState(replayed) != captureState(account) {
		t.Fatalf("replay diverged: live %+v, replayed %+v",
			captureState(account), captureState(replayed))
	}
	if replayed.Disputed(1) != account.Disputed(1) || replayed.Disputed(2) != account.Disputed(2) {
		t.Fatal("replay diverged on dispute set")
	}
	if err := replayed.CheckInvariants(); err != nil {
		t.Fatalf("replayed invariants: %v", err)
	}
}

func TestInvariantsHoldAfterEveryStep(t *testing.T) {
	t.Parallel()
	applier := NewApplier()
	account := NewAccount(testClient)

	sequence := []Transaction{
		deposit(t, 1, "10.0"),
		deposit(t, 2, "0.0001"),
		withdrawal(t, 3, "5.5"),
		reference(TypeDispute, 1),
		reference(TypeResolve, 1),
		reference(TypeDispute, 3),
		reference(TypeChargeback, 3),
	}
	for _, transaction := range sequence {
		if err := applier.Apply(transaction, account); err != nil {
			t.Fatalf("apply %s tx %d: %v", transaction.Type, transaction.ID, err)
		}
		if err := account.CheckInvariants(); err != nil {
			t.Fatalf("after %s tx %d: %v", transaction.Type, transaction.ID, err)
		}
	}
}
