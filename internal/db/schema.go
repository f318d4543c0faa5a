package db

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id UUID PRIMARY KEY,
		company TEXT NOT NULL DEFAULT '',
		role_title TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS run_steps (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
		step TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		duration_ms INTEGER,
		error_message TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (run_id, step)
	)`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		run_id UUID NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		category TEXT NOT NULL,
		content JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		html TEXT NOT NULL,
		text TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,
}

// SQLite stores ids as text and times as unix milliseconds.
var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		company TEXT NOT NULL DEFAULT '',
		role_title TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS run_steps (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
		step TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at INTEGER,
		completed_at INTEGER,
		duration_ms INTEGER,
		error_message TEXT,
		updated_at INTEGER NOT NULL,
		UNIQUE (run_id, step)
	);`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		run_id TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		category TEXT NOT NULL,
		content BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, key)
	);`,
	`CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		html TEXT NOT NULL,
		text TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL
	);`,
}
