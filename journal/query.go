package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GetRun loads a run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		r     Run
		pairs string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, mode, strategy, pairs, home_currency, equity, risk_per_trade, leverage
		FROM runs
		WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &r.Mode, &r.Strategy, &pairs,
		&r.HomeCurrency, &r.Equity, &r.RiskPerTrade, &r.Leverage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q not found", runID)
		}
		return Run{}, err
	}
	if pairs != "" {
		r.Pairs = strings.Split(pairs, ",")
	}
	return r, nil
}

// LatestRunID returns the most recently created run.
func (j *SQLite) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := j.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY created DESC, run_id DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no runs recorded")
	}
	return runID, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT trade_id, pair, side, units, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns a run's trades by close time.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, pair, side, units, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Pair,
		&rec.Side,
		&rec.Units,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// ListEquity rebuilds a run's equity log in recording order.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, time, balance
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []EquitySnapshot
		bySeq = map[int64]int{}
	)
	for rows.Next() {
		var (
			seq  int64
			snap EquitySnapshot
		)
		if err := rows.Scan(&seq, &snap.Time, &snap.Balance); err != nil {
			return nil, err
		}
		snap.Profits = map[string]decimal.Decimal{}
		bySeq[seq] = len(out)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := j.db.QueryContext(ctx, `
		SELECT seq, pair, profit
		FROM equity_positions
		WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var (
			seq    int64
			pair   string
			profit decimal.Decimal
		)
		if err := prows.Scan(&seq, &pair, &profit); err != nil {
			return nil, err
		}
		if i, ok := bySeq[seq]; ok {
			out[i].Profits[pair] = profit
		}
	}
	return out, prows.Err()
}
