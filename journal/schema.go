package journal

// Decimal amounts are stored as TEXT so they round-trip without float
// error.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	mode TEXT NOT NULL,
	strategy TEXT NOT NULL,
	pairs TEXT NOT NULL,
	home_currency TEXT NOT NULL,
	equity TEXT NOT NULL,
	risk_per_trade TEXT NOT NULL,
	leverage TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	balance TEXT NOT NULL,
	total TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity_positions (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	pair TEXT NOT NULL,
	profit TEXT NOT NULL,
	PRIMARY KEY (run_id, seq, pair)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	pair TEXT NOT NULL,
	side TEXT NOT NULL,
	units INTEGER NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, close_time);
`
