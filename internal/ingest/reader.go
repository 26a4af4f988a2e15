// Package ingest reads transaction records from CSV.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"qazna.org/txengine/internal/ledger"
)

// RowError reports a row that could not be parsed. The stream stays usable
// after a RowError.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// Reader turns CSV rows of the form type,client,tx,amount into
// ledger.Records. A leading header row is detected and skipped.
type Reader struct {
	csv       *csv.Reader
	checkHead bool
}

// NewReader wraps r. Rows may omit the trailing amount column.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{csv: cr, checkHead: true}
}

// Next returns the next record, io.EOF at the end of input, or a *RowError
// for a malformed row. Any other error means the underlying stream failed.
func (r *Reader) Next() (ledger.Record, error) {
	for {
		fields, err := r.csv.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return ledger.Record{}, &RowError{Line: perr.Line, Err: perr.Err}
			}
			return ledger.Record{}, err
		}
		line, _ := r.csv.FieldPos(0)

		if r.checkHead {
			r.checkHead = false
			if isHeader(fields) {
				continue
			}
		}
		if blank(fields) {
			continue
		}

		rec, err := parseRecord(fields)
		if err != nil {
			return ledger.Record{}, &RowError{Line: line, Err: err}
		}
		return rec, nil
	}
}

func isHeader(fields []string) bool {
	return len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "type")
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRecord(fields []string) (ledger.Record, error) {
	if len(fields) < 3 {
		return ledger.Record{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}

	client, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 16)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("invalid client %q: %w", fields[1], err)
	}
	tx, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 32)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("invalid tx %q: %w", fields[2], err)
	}

	amount := decimal.Zero
	if len(fields) > 3 {
		if raw := strings.TrimSpace(fields[3]); raw != "" {
			amount, err = decimal.NewFromString(raw)
			if err != nil {
				return ledger.Record{}, fmt.Errorf("invalid amount %q: %w", raw, err)
			}
		}
	}

	return ledger.Record{
		Kind:   ledger.ParseKind(fields[0]),
		Client: ledger.ClientID(client),
		Tx:     ledger.TxID(tx),
		Amount: amount,
	}, nil
}
