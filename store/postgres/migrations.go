package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token store.
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
    sequence     BIGINT NOT NULL,
    kind         TEXT NOT NULL,
    op           TEXT NOT NULL DEFAULT '',
    caller       TEXT NOT NULL DEFAULT '',
    from_account TEXT,
    to_account   TEXT,
    owner        TEXT,
    spender      TEXT,
    value        NUMERIC(78, 0) NOT NULL DEFAULT 0,
    timestamp    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_token_events_sequence ON token_events (token_id, sequence);
CREATE INDEX IF NOT EXISTS idx_token_events_timestamp ON token_events (token_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_token_events_from ON token_events (token_id, from_account);
CREATE INDEX IF NOT EXISTS idx_token_events_to ON token_events (token_id, to_account);
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
    sequence     BIGINT NOT NULL DEFAULT 0,
    total_supply NUMERIC(78, 0) NOT NULL DEFAULT 0,
    balances     JSONB NOT NULL DEFAULT '{}',
    allowances   JSONB NOT NULL DEFAULT '[]',
    metadata     JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_token_snapshots_latest ON token_snapshots (token_id, sequence DESC, id DESC);
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
