package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	fill_id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price TEXT NOT NULL,
	session DATETIME NOT NULL,
	commission TEXT NOT NULL,
	stamp_duty TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, fill_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	session DATETIME NOT NULL,
	cash TEXT NOT NULL,
	position_value TEXT NOT NULL,
	equity TEXT NOT NULL,
	drawdown_pct TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	account TEXT NOT NULL,
	strategy TEXT NOT NULL,
	symbols TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	initial_capital TEXT NOT NULL,
	final_equity TEXT NOT NULL,
	total_return_pct TEXT NOT NULL,
	max_drawdown_pct TEXT NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	timing TEXT NOT NULL,
	gap_policy TEXT NOT NULL,
	force_closed INTEGER NOT NULL,
	liquidations INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id, session);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, session);
`
