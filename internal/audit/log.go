package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"qazna.org/txengine/internal/ledger"
)

type ctxKey string

const runIDKey ctxKey = "audit_run_id"

// Event names.
const (
	EventApplied   = "ledger.record.applied"
	EventRejected  = "ledger.record.rejected"
	EventMalformed = "ingest.row.malformed"
)

// WithRunID attaches the run identifier to the context for audit logging.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run id stored by WithRunID.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// Trail writes one audit entry per processed input row.
type Trail struct {
	log *zap.Logger
}

// NewTrail returns a Trail logging through l. A nil logger discards entries.
func NewTrail(l *zap.Logger) *Trail {
	if l == nil {
		l = zap.NewNop()
	}
	return &Trail{log: l.With(zap.String("type", "audit"))}
}

func (t *Trail) fields(ctx context.Context, event string, rec ledger.Record) []zap.Field {
	fs := []zap.Field{
		zap.String("event", event),
		zap.String("kind", string(rec.Kind)),
		zap.Uint16("client", uint16(rec.Client)),
		zap.Uint32("tx", uint32(rec.Tx)),
	}
	if rec.Kind == ledger.KindDeposit || rec.Kind == ledger.KindWithdrawal {
		fs = append(fs, zap.String("amount", rec.Amount.String()))
	}
	if rid := RunIDFromContext(ctx); rid != "" {
		fs = append(fs, zap.String("run_id", rid))
	}
	return fs
}

// Applied logs an accepted record at debug level.
func (t *Trail) Applied(ctx context.Context, rec ledger.Record) {
	if !t.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	t.log.Debug("record applied", t.fields(ctx, EventApplied, rec)...)
}

// Rejected logs a rejected record at warn level with its rejection code.
func (t *Trail) Rejected(ctx context.Context, rec ledger.Record, err error) {
	fs := append(t.fields(ctx, EventRejected, rec),
		zap.String("code", string(ledger.CodeOf(err))),
		zap.Error(err),
	)
	t.log.Warn("record rejected", fs...)
}

// Malformed logs an input row that could not be parsed.
func (t *Trail) Malformed(ctx context.Context, line int, err error) {
	fs := []zap.Field{zap.String("event", EventMalformed), zap.Int("line", line), zap.Error(err)}
	if rid := RunIDFromContext(ctx); rid != "" {
		fs = append(fs, zap.String("run_id", rid))
	}
	t.log.Warn("row skipped", fs...)
}
