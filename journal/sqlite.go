package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/fxtrader/internal/id"
)

// ErrNoRun is returned when rows are recorded before StartRun.
var ErrNoRun = errors.New("journal: no run started")

// Run describes one backtest or live session.
type Run struct {
	RunID        string
	Created      time.Time
	Mode         string
	Strategy     string
	Pairs        []string
	HomeCurrency string
	Equity       decimal.Decimal
	RiskPerTrade decimal.Decimal
	Leverage     decimal.Decimal
}

// SQLite stores every run in one database file, keyed by run ID.
type SQLite struct {
	db    *sql.DB
	runID string
	seq   int64
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// StartRun registers r and scopes subsequent rows to it. An empty RunID
// is filled in.
func (j *SQLite) StartRun(ctx context.Context, r *Run) error {
	if r.RunID == "" {
		r.RunID = id.New()
	}
	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, mode, strategy, pairs, home_currency, equity, risk_per_trade, leverage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Mode, r.Strategy, strings.Join(r.Pairs, ","),
		r.HomeCurrency, r.Equity, r.RiskPerTrade, r.Leverage,
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", r.RunID, err)
	}
	j.runID = r.RunID
	j.seq = 0
	return nil
}

// RunID is the active run, empty before StartRun.
func (j *SQLite) RunID() string { return j.runID }

func (j *SQLite) RecordTrade(t TradeRecord) error {
	if j.runID == "" {
		return ErrNoRun
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, pair, side, units, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, j.runID, t.Pair, t.Side, t.Units, t.EntryPrice,
		t.ExitPrice, t.OpenTime, t.CloseTime, t.RealizedPL, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.TradeID, err)
	}
	return nil
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	if j.runID == "" {
		return ErrNoRun
	}
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq := j.seq + 1
	if _, err := tx.Exec(`
		INSERT INTO equity (run_id, seq, time, balance, total)
		VALUES (?, ?, ?, ?, ?)`,
		j.runID, seq, e.Time, e.Balance, e.Total(),
	); err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	for pair, profit := range e.Profits {
		if _, err := tx.Exec(`
			INSERT INTO equity_positions (run_id, seq, pair, profit)
			VALUES (?, ?, ?, ?)`,
			j.runID, seq, pair, profit,
		); err != nil {
			return fmt.Errorf("record equity %s: %w", pair, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	j.seq = seq
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
