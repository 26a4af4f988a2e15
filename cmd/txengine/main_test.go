package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestFixtures(t *testing.T) {
	for _, name := range []string{"transactions", "chargeback", "resolve"} {
		t.Run(name, func(t *testing.T) {
			want, err := os.ReadFile(filepath.Join("testdata", name+".out.csv"))
			require.NoError(t, err)

			out, _, err := runCLI(t, "-log-level", "error", filepath.Join("testdata", name+".csv"))
			require.NoError(t, err)
			assert.Equal(t, string(want), out)
		})
	}
}

func TestRejectedRecordsDoNotFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(`type,client,tx,amount
deposit,1,1,5.0
withdrawal,1,2,9.0
resolve,1,1,
refund,2,3,1.0
deposit,oops,4,1.0
`), 0o600))

	out, logs, err := runCLI(t, path)
	require.NoError(t, err)
	assert.Equal(t, "client,available,held,total,locked\n1,5.0,0.0,5.0,false\n2,0.0,0.0,0.0,false\n", out)
	assert.Contains(t, logs, `"code":"insufficient_funds"`)
	assert.Contains(t, logs, `"code":"dispute_not_found"`)
	assert.Contains(t, logs, `"code":"unknown_transaction_kind"`)
	assert.Contains(t, logs, `"event":"ingest.row.malformed"`)
	assert.Contains(t, logs, `"msg":"run finished"`)
}

func TestStrictFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(`deposit,1,1,5.0
deposit,1,1,5.0
`), 0o600))

	out, _, err := runCLI(t, "-log-level", "error", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1,10.0,0.0,10.0,false")

	out, logs, err := runCLI(t, "-strict", "-log-level", "warn", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1,5.0,0.0,5.0,false")
	assert.Contains(t, logs, `"code":"duplicate_transaction"`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	metrics := filepath.Join(dir, "txengine.prom")
	cfg := filepath.Join(dir, "txengine.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log:\n  level: error\n  format: console\nmetrics:\n  file: "+metrics+"\n"), 0o600))

	_, logs, err := runCLI(t, "-config", cfg, filepath.Join("testdata", "chargeback.csv"))
	require.NoError(t, err)
	assert.Empty(t, logs)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	prom := string(data)
	assert.Contains(t, prom, `txengine_records_total{kind="chargeback",outcome="applied"} 1`)
	assert.Contains(t, prom, `txengine_locked_accounts 1`)
	assert.Contains(t, prom, `txengine_build_info{version="`+version+`"} 1`)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "txengine.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log:\n  level: debug\n"), 0o600))

	_, logs, err := runCLI(t, "-config", cfg, "-log-level", "error", filepath.Join("testdata", "transactions.csv"))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSummary(t *testing.T) {
	_, logs, err := runCLI(t, "-summary", "-log-level", "error", filepath.Join("testdata", "chargeback.csv"))
	require.NoError(t, err)
	assert.Contains(t, logs, "txengine run")
	assert.Contains(t, logs, "rows read: 7")
	assert.Contains(t, logs, "locked accounts: 1")
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "-version")
	require.NoError(t, err)
	assert.Equal(t, "txengine "+version+"\n", out)
}

func TestUsageErrors(t *testing.T) {
	_, stderr, err := runCLI(t)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "usage: txengine")

	_, _, err = runCLI(t, "-no-such-flag", "x.csv")
	require.ErrorIs(t, err, errUsage)

	_, _, err = runCLI(t, "-log-format", "xml", "x.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestMissingInput(t *testing.T) {
	_, _, err := runCLI(t, filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "open input:"))
}
