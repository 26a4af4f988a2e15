// Package ui prints the human-readable run summary.
package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"qazna.org/txengine/internal/ledger"
	"qazna.org/txengine/internal/pipeline"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
)

const width = 48

// Header prints a framed title.
func Header(w io.Writer, text string) {
	line := strings.Repeat("=", width)
	green.Fprintf(w, "%s\n", line)
	green.Fprintf(w, "%s\n", center(text, width))
	green.Fprintf(w, "%s\n", line)
}

// Success prints a positive line.
func Success(w io.Writer, text string) {
	green.Fprintf(w, "  → %s\n", text)
}

// Info prints a neutral line.
func Info(w io.Writer, text string) {
	fmt.Fprintf(w, "  → %s\n", text)
}

// Warning prints a highlighted line.
func Warning(w io.Writer, text string) {
	yellow.Fprintf(w, "  ⚠ %s\n", text)
}

// Error prints an error line.
func Error(w io.Writer, text string) {
	red.Fprintf(w, "Error: %s\n", text)
}

// PrintSummary renders s to w. Rejection codes are listed in name order.
func PrintSummary(w io.Writer, s pipeline.Summary) {
	title := "txengine run"
	if s.RunID != "" {
		title += " " + s.RunID
	}
	Header(w, title)

	Info(w, fmt.Sprintf("rows read: %d", s.Rows))
	Success(w, fmt.Sprintf("applied: %d", s.Applied))

	if n := s.RejectedTotal(); n > 0 {
		Warning(w, fmt.Sprintf("rejected: %d", n))
		codes := make([]ledger.Code, 0, len(s.Rejected))
		for c := range s.Rejected {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, c := range codes {
			fmt.Fprintf(w, "      %-26s %d\n", c, s.Rejected[c])
		}
	} else {
		Info(w, "rejected: 0")
	}
	if s.Malformed > 0 {
		Warning(w, fmt.Sprintf("malformed rows: %d", s.Malformed))
	}

	Info(w, fmt.Sprintf("accounts: %d", s.Accounts))
	if s.Locked > 0 {
		Warning(w, fmt.Sprintf("locked accounts: %d", s.Locked))
	}
	Info(w, fmt.Sprintf("elapsed: %s", s.Elapsed))
}

func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}
