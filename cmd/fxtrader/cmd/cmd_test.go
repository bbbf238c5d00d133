package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxtrader/config"
)

// run executes the root command. Flag variables are package state, so
// these tests do not run in parallel.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeTicks(t *testing.T, dir string) {
	t.Helper()
	t0 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("time,instrument,bid,ask\n")
	for i := 0; i < 10; i++ {
		bid, ask := "1.10000", "1.10020"
		if i >= 5 {
			bid, ask = "1.10500", "1.10520"
		}
		fmt.Fprintf(&b, "%s,EUR_USD,%s,%s\n", t0.Add(time.Duration(i)*time.Second).Format(time.RFC3339), bid, ask)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EURUSD.csv"), []byte(b.String()), 0o644))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fxtrader version "+version+"\n", out)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxtrader.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Pairs:    GBPUSD, EURUSD")
	assert.Contains(t, out, "Strategy: mac")
}

func TestConfigValidateRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  home_currency: EURO\n"), 0o644))

	_, err := run(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestBacktestAndSummary(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	writeTicks(t, dataDir)

	cfg := config.Default()
	cfg.Pairs = []string{"EURUSD"}
	cfg.Strategy.Name = "alternating"
	cfg.Backtest.DataDir = dataDir
	cfg.Journal.OutputDir = filepath.Join(dir, "out")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "fxtrader.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	out, err := run(t, "backtest", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Trades:        1")
	assert.Contains(t, out, "End Total:     100008.69")
	assert.Contains(t, out, "Net P/L:       8.69")
	assert.FileExists(t, cfg.Journal.SummaryPath())

	out, err = run(t, "summary",
		"--equity", cfg.Journal.EquityPath(),
		"--trades", cfg.Journal.TradesPath(),
		"-o", filepath.Join(dir, "again.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Pairs:         EURUSD")
	assert.Contains(t, out, "Wins:          1")
	assert.Contains(t, out, "Max Drawdown:  0.00%")

	want, err := os.ReadFile(cfg.Journal.SummaryPath())
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "again.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestBacktestSQLiteAndJournal(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	writeTicks(t, dataDir)

	cfg := config.Default()
	cfg.Pairs = []string{"EURUSD"}
	cfg.Strategy.Name = "alternating"
	cfg.Backtest.DataDir = dataDir
	cfg.Journal.Type = "sqlite"
	cfg.Journal.OutputDir = filepath.Join(dir, "out")
	cfg.Journal.DBPath = filepath.Join(dir, "out", "runs.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "fxtrader.json")
	require.NoError(t, cfg.SaveToFile(path))

	out, err := run(t, "backtest", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Run ID:")
	assert.Contains(t, out, "End Total:     100008.69")

	out, err = run(t, "journal", "trades", "--db", cfg.Journal.DBPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "EURUSD")
	assert.Contains(t, lines[1], "8.69")
	assert.Contains(t, lines[1], "close")

	out, err = run(t, "summary", "--db", cfg.Journal.DBPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:          backtest")
	assert.Contains(t, out, "Strategy:      alternating")
}

func TestBacktestMissingData(t *testing.T) {
	cfg := config.Default()
	cfg.Backtest.DataDir = filepath.Join(t.TempDir(), "missing")
	cfg.Journal.OutputDir = t.TempDir()
	cfg.Log.Level = "error"
	path := filepath.Join(t.TempDir(), "fxtrader.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	_, err := run(t, "backtest", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load ticks")
}

func TestDataCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		_, _ = w.Write([]byte(`{"instrument":"EUR_USD","granularity":"M1","candles":[
{"complete":true,"time":"2024-01-02T09:00:00Z","bid":{"c":"1.10000"},"ask":{"c":"1.10020"}},
{"complete":true,"time":"2024-01-02T09:01:00Z","bid":{"c":"1.10010"},"ask":{"c":"1.10030"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("OANDA_TOKEN", "test-token")

	dir := t.TempDir()
	out, err := run(t, "data", "candles", "--dir", dir, "--pair", "EUR_USD",
		"--from", "2024-01-02T09:00:00Z", "--to", "2024-01-02T10:00:00Z", "--api-url", srv.URL)
	require.NoError(t, err)
	path := filepath.Join(dir, "EURUSD_m1_20240102.csv")
	assert.Equal(t, "wrote 2 ticks to "+path+"\n", out)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time,instrument,bid,ask\n"+
		"2024-01-02T09:00:00Z,EUR_USD,1.10000,1.10020\n"+
		"2024-01-02T09:01:00Z,EUR_USD,1.10010,1.10030\n", string(body))
}

func TestDataFlagErrors(t *testing.T) {
	t.Setenv("OANDA_TOKEN", "test-token")

	_, err := run(t, "data", "candles", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--count or --from")

	_, err = run(t, "data", "candles", "--from", "2024-01-02T10:00:00Z", "--to", "2024-01-02T09:00:00Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before --to")

	_, err = run(t, "data", "simulate", "--dir", t.TempDir(), "--month", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad --month")
}
