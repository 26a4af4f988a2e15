// Package report renders final account balances.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"qazna.org/txengine/internal/ledger"
)

// DisplayPlaces is the number of fractional digits shown for amounts.
const DisplayPlaces = 1

var header = []string{"client", "available", "held", "total", "locked"}

// WriteCSV writes a header and one row per balance, in the order given.
func WriteCSV(w io.Writer, balances []ledger.Balance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, b := range balances {
		row[0] = strconv.FormatUint(uint64(b.Client), 10)
		row[1] = b.Available.StringFixed(DisplayPlaces)
		row[2] = b.Held.StringFixed(DisplayPlaces)
		row[3] = b.Total.StringFixed(DisplayPlaces)
		row[4] = strconv.FormatBool(b.Locked)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
