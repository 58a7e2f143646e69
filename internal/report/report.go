// Package report renders the final ledger snapshot as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/MarkoPoloResearchLab/payments/pkg/ledger"
)

var header = []string{"client", "available", "held", "total", "locked"}

// Write renders one row per account. Amounts are rounded to four
// fractional digits; row order follows the snapshot, which is
// unspecified.
func Write(w io.Writer, summaries []ledger.AccountSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, summary := range summaries {
		row := []string{
			strconv.FormatUint(uint64(summary.Client), 10),
			summary.Available.String(),
			summary.Held.String(),
			summary.Total.String(),
			strconv.FormatBool(summary.Locked),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row for client %d: %w", summary.Client, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
