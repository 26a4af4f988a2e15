package audit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"qazna.org/txengine/internal/ledger"
)

func newObservedTrail(level zapcore.Level) (*Trail, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewTrail(zap.New(core)), logs
}

func TestTrailRejected(t *testing.T) {
	trail, logs := newObservedTrail(zapcore.InfoLevel)
	ctx := WithRunID(context.Background(), "run-123")

	rec := ledger.Record{Kind: ledger.KindWithdrawal, Client: 2, Tx: 5, Amount: decimal.RequireFromString("3.0")}
	err := &ledger.Error{Code: ledger.CodeInsufficientFunds, Client: 2, Tx: 5, Kind: ledger.KindWithdrawal}
	trail.Rejected(ctx, rec, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "audit", fields["type"])
	assert.Equal(t, EventRejected, fields["event"])
	assert.Equal(t, "run-123", fields["run_id"])
	assert.Equal(t, "insufficient_funds", fields["code"])
	assert.Equal(t, "3", fields["amount"])
	assert.EqualValues(t, 2, fields["client"])
	assert.EqualValues(t, 5, fields["tx"])
}

func TestTrailAppliedOnlyAtDebug(t *testing.T) {
	rec := ledger.Record{Kind: ledger.KindDispute, Client: 1, Tx: 1}

	trail, logs := newObservedTrail(zapcore.InfoLevel)
	trail.Applied(context.Background(), rec)
	assert.Equal(t, 0, logs.Len())

	trail, logs = newObservedTrail(zapcore.DebugLevel)
	trail.Applied(context.Background(), rec)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "amount")
	assert.NotContains(t, fields, "run_id")
}

func TestTrailMalformed(t *testing.T) {
	trail, logs := newObservedTrail(zapcore.InfoLevel)
	trail.Malformed(WithRunID(context.Background(), "r"), 7, assert.AnError)

	require.Equal(t, 1, logs.FilterField(zap.Int("line", 7)).Len())
}

func TestWithRunIDIgnoresBlank(t *testing.T) {
	ctx := WithRunID(context.Background(), "  ")
	assert.Equal(t, "", RunIDFromContext(ctx))
}

func TestNilLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		NewTrail(nil).Rejected(context.Background(), ledger.Record{}, assert.AnError)
	})
}
