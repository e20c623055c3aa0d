package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/store/sqlite"
	"github.com/xraph/token/types"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	drv := sqlitedriver.New()
	require.NoError(t, drv.Open(t.Context(), path))
	db, err := grove.Open(drv)
	require.NoError(t, err)

	s := sqlite.New(db)
	require.NoError(t, s.Migrate(t.Context()))
	return s
}

func TestEmptyStore(t *testing.T) {
	ctx := t.Context()
	s := openStore(t, filepath.Join(t.TempDir(), "token.db"))
	t.Cleanup(func() { _ = s.Close() })

	tokenID := id.NewTokenID()

	_, err := s.LatestSnapshot(ctx, tokenID)
	require.ErrorIs(t, err, token.ErrSnapshotNotFound)

	last, err := s.LastSequence(ctx, tokenID)
	require.NoError(t, err)
	assert.Zero(t, last)

	require.NoError(t, s.Ping(ctx))
}

func TestLedgerSurvivesRestart(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "token.db")
	tokenID := id.NewTokenID()

	// 2^128 * 1000 + 1 does not fit in a SQLite integer.
	supply, err := types.ParseAmount("340282366920938463463374607431768211456001")
	require.NoError(t, err)

	l, err := token.Open(ctx, openStore(t, path), tokenID, supply, "alice", token.WithStrictAllowances())
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))

	require.NoError(t, l.Transfer("alice", "bob", types.NewAmount(100)))
	require.NoError(t, l.Approve("alice", "carol", types.NewAmount(50)))
	require.NoError(t, l.TransferFrom("carol", "alice", "dave", types.NewAmount(30)))
	require.NoError(t, l.Mint("bob", types.NewAmount(7)))
	require.NoError(t, l.Burn("alice", types.NewAmount(1)))

	want := l.Snapshot()
	require.NoError(t, l.Stop())

	s := openStore(t, path)
	t.Cleanup(func() { _ = s.Close() })

	reopened, err := token.Open(ctx, s, tokenID, types.Zero(), "", token.WithStrictAllowances())
	require.NoError(t, err)

	got := reopened.Snapshot()
	assert.Equal(t, want.Sequence, got.Sequence)
	assert.Equal(t, want.TotalSupply, got.TotalSupply)
	assert.Equal(t, want.Balances, got.Balances)
	assert.Equal(t, want.Allowances, got.Allowances)
	assert.Equal(t, types.NewAmount(20), reopened.Allowance("alice", "carol"))
	require.NoError(t, reopened.Verify())

	events, err := s.ListEvents(ctx, tokenID, event.ListOpts{Account: "dave"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, token.OpTransferFrom, events[0].Op)
	assert.Equal(t, types.AccountID("carol"), events[0].Caller)
	assert.Equal(t, types.NewAmount(30), events[0].Transfer.Value)
}
