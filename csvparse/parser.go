// Package csvparse turns raw mass-payment CSV text into validated recipient
// records. The accepted format is the user-facing template: a comma-separated
// header row naming at least "address" and "amount" (plus optional "asset"
// and "note"), followed by one recipient per line. Embedded commas and
// quoting are not supported, so rows are split positionally rather than fed
// through an RFC 4180 reader that would accept what the template forbids.
package csvparse

import (
	// Go Internal Packages
	"fmt"
	"strings"

	// Local Packages
	errors "masspay/errors"
	models "masspay/models"

	// External Packages
	"github.com/shopspring/decimal"
)

// TemplateHeader is the bit-exact header of the downloadable CSV template.
const TemplateHeader = "address,amount,asset,note"

var requiredColumns = []string{"address", "amount"}

// Template returns the sample CSV offered to users as a starting point.
func Template() string {
	return TemplateHeader + "\n" +
		"0x742d35Cc6A1234567890123456789012345678a2E4,1000,USDC,Team payment\n" +
		"0x8f3a45Bb6B1234567890123456789012345678c9B2,2500,USDC,Contractor fee\n" +
		"0x1a2b34Cc6C1234567890123456789012345678d4F6,500,USDC,Bonus payment\n"
}

// Parse converts raw CSV text into recipient records. The first non-blank
// line is the header; required columns are checked before any row is
// touched, so a header-only upload yields an empty list and no error.
// Malformed rows are skipped and reported, never fatal: the caller decides
// whether a partial batch is acceptable. Pure function, safe for concurrent
// use.
func Parse(text string) ([]models.RecipientRecord, []models.RowError, error) {
	lines := strings.Split(text, "\n")

	header := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, nil, errors.MissingColumnsErr(requiredColumns)
	}

	columns := splitRow(lines[header])
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		name := strings.ToLower(col)
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.MissingColumnsErr(missing)
	}

	var (
		recipients []models.RecipientRecord
		skipped    []models.RowError
	)
	for i := header + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		line := i + 1 // 1-based, counting the header and blank lines

		fields := splitRow(lines[i])
		if len(fields) != len(columns) {
			skipped = append(skipped, models.RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(columns), len(fields)),
			})
			continue
		}

		address := fields[index["address"]]
		if address == "" {
			skipped = append(skipped, models.RowError{Line: line, Reason: "address cannot be empty"})
			continue
		}

		amount, err := decimal.NewFromString(fields[index["amount"]])
		if err != nil {
			skipped = append(skipped, models.RowError{
				Line:   line,
				Reason: fmt.Sprintf("amount %q is not a number", fields[index["amount"]]),
			})
			continue
		}
		if amount.IsNegative() {
			skipped = append(skipped, models.RowError{Line: line, Reason: "amount cannot be negative"})
			continue
		}

		rec := models.RecipientRecord{Address: address, Amount: amount}
		if col, ok := index["asset"]; ok {
			rec.Asset = fields[col]
		}
		if col, ok := index["note"]; ok {
			rec.Note = fields[col]
		}
		recipients = append(recipients, rec)
	}

	return recipients, skipped, nil
}

func splitRow(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
