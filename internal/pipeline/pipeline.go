// Package pipeline drives records from an input stream through the ledger
// engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"qazna.org/txengine/internal/audit"
	"qazna.org/txengine/internal/ingest"
	"qazna.org/txengine/internal/ledger"
	"qazna.org/txengine/internal/obs"
)

// Source yields records until io.EOF. *ingest.Reader implements it.
type Source interface {
	Next() (ledger.Record, error)
}

// Options wires optional collaborators. Zero values are valid.
type Options struct {
	Metrics *obs.Metrics
	Trail   *audit.Trail
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Rows      int
	Applied   int
	Rejected  map[ledger.Code]int
	Malformed int
	Accounts  int
	Locked    int
	Elapsed   time.Duration
}

// RejectedTotal sums rejections over all codes.
func (s Summary) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Run applies every record from src to eng in order. Rejected and malformed
// rows are counted and logged, never fatal. Run stops early when ctx is done
// or src fails, returning the summary so far together with the error.
func Run(ctx context.Context, src Source, eng *ledger.Engine, opts Options) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:    audit.RunIDFromContext(ctx),
		Rejected: make(map[ledger.Code]int),
	}
	trail := opts.Trail
	if trail == nil {
		trail = audit.NewTrail(nil)
	}

	finish := func(err error) (Summary, error) {
		sum.Accounts = eng.Len()
		for _, b := range eng.Balances() {
			if b.Locked {
				sum.Locked++
			}
		}
		sum.Elapsed = time.Since(start)
		if opts.Metrics != nil {
			opts.Metrics.SetAccounts(sum.Accounts, sum.Locked)
		}
		return sum, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(fmt.Errorf("run interrupted after %d rows: %w", sum.Rows, err))
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return finish(nil)
		}
		if err != nil {
			var rowErr *ingest.RowError
			if !errors.As(err, &rowErr) {
				return finish(fmt.Errorf("read input: %w", err))
			}
			sum.Rows++
			sum.Malformed++
			trail.Malformed(ctx, rowErr.Line, rowErr.Err)
			if opts.Metrics != nil {
				opts.Metrics.Malformed()
			}
			continue
		}

		sum.Rows++
		if err := eng.Apply(rec); err != nil {
			code := ledger.CodeOf(err)
			sum.Rejected[code]++
			trail.Rejected(ctx, rec, err)
			if opts.Metrics != nil {
				opts.Metrics.Rejected(rec.Kind, code)
			}
			continue
		}
		sum.Applied++
		trail.Applied(ctx, rec)
		if opts.Metrics != nil {
			opts.Metrics.Applied(rec.Kind)
		}
	}
}
