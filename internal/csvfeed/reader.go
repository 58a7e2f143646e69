// Package csvfeed parses the textual transaction feed and delivers
// already-parsed transactions to the ingestion pipeline. A malformed
// record aborts the remaining feed; transactions already submitted stay
// applied.
package csvfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarkoPoloResearchLab/payments/pkg/ledger"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

var errMissingColumn = errors.New("missing column")

// Read parses the feed from r and hands each transaction to submit in
// record order. It stops at the first malformed record or submit failure.
func Read(r io.Reader, submit func(ledger.Transaction) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Dispute, resolve and chargeback rows often omit the trailing
	// amount field entirely.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	columns, err := columnIndexes(header)
	if err != nil {
		return err
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", line, err)
		}
		transaction, err := parseRecord(record, columns)
		if err != nil {
			return fmt.Errorf("record %d: %w", line, err)
		}
		if err := submit(transaction); err != nil {
			return fmt.Errorf("record %d: submit: %w", line, err)
		}
	}
}

// columnIndexes maps the required header names to field positions.
func columnIndexes(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for index, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = index
	}
	for _, required := range []string{columnType, columnClient, columnTx} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %q", errMissingColumn, required)
		}
	}
	return columns, nil
}

func parseRecord(record []string, columns map[string]int) (ledger.Transaction, error) {
	transactionType, err := ledger.ParseTransactionType(field(record, columns, columnType))
	if err != nil {
		return ledger.Transaction{}, err
	}
	clientID, err := ledger.ParseClientID(field(record, columns, columnClient))
	if err != nil {
		return ledger.Transaction{}, err
	}
	transactionID, err := ledger.ParseTransactionID(field(record, columns, columnTx))
	if err != nil {
		return ledger.Transaction{}, err
	}

	amount, err := parseAmount(transactionType, field(record, columns, columnAmount))
	if err != nil {
		return ledger.Transaction{}, err
	}

	return ledger.Transaction{
		Type:     transactionType,
		ClientID: clientID,
		ID:       transactionID,
		Amount:   amount,
	}, nil
}

// parseAmount requires an amount for deposit and withdrawal rows and
// defaults to zero when the reference types leave it empty.
func parseAmount(transactionType ledger.TransactionType, raw string) (ledger.Currency, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if transactionType.CarriesAmount() {
			return ledger.Currency{}, fmt.Errorf("%w: amount required for %s",
				ledger.ErrInvalidAmount, transactionType)
		}
		return ledger.Currency{}, nil
	}
	return ledger.ParseCurrency(trimmed)
}

// field returns the named column of the record, or "" when the row is
// short of it.
func field(record []string, columns map[string]int, name string) string {
	index, ok := columns[name]
	if !ok || index >= len(record) {
		return ""
	}
	return record[index]
}
