package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token store (SQLite).
// Amounts are stored as decimal TEXT; SQLite integers stop at 64 bits.
var Migrations = migrate.NewGroup("token")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_token_events",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_events (
    id           TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL,
    sequence     INTEGER NOT NULL,
    kind         TEXT NOT NULL,
    op           TEXT NOT NULL DEFAULT '',
    caller       TEXT NOT NULL DEFAULT '',
    from_account TEXT,
    to_account   TEXT,
    owner        TEXT,
    spender      TEXT,
    value        TEXT NOT NULL DEFAULT '0',
    timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_token_events_sequence ON token_events (token_id, sequence);
CREATE INDEX IF NOT EXISTS idx_token_events_timestamp ON token_events (token_id, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_token_snapshots",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_snapshots (
    id           TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL,
    sequence     INTEGER NOT NULL DEFAULT 0,
    total_supply TEXT NOT NULL DEFAULT '0',
    balances     TEXT NOT NULL DEFAULT '{}',
    allowances   TEXT NOT NULL DEFAULT '[]',
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_token_snapshots_latest ON token_snapshots (token_id, sequence, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_snapshots`)
				return err
			},
		},
	)
}
