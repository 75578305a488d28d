package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL DEFAULT '',
	instrument TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	usd_cost REAL NOT NULL,
	pnl REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument);

CREATE TABLE IF NOT EXISTS signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	confirmations TEXT NOT NULL,
	price REAL NOT NULL,
	acted_on INTEGER NOT NULL DEFAULT 0,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_instrument ON signals(instrument);

CREATE TABLE IF NOT EXISTS daily_performance (
	date TEXT PRIMARY KEY,
	capital REAL NOT NULL,
	equity REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	realized_pnl REAL NOT NULL,
	unrealized_pnl REAL NOT NULL
);
`
