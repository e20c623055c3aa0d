package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/types"
)

func transfer(tokenID id.TokenID, seq uint64, from, to types.AccountID, value uint64) *event.Event {
	e := event.NewTransfer(from.Ptr(), to.Ptr(), types.NewAmount(value))
	e.TokenID = tokenID
	e.Sequence = seq
	return e
}

func TestEventJournal(t *testing.T) {
	ctx := t.Context()
	s := memory.New()
	tokenID := id.NewTokenID()

	e1 := transfer(tokenID, 1, "alice", "bob", 1)
	e2 := transfer(tokenID, 2, "bob", "carol", 1)
	approval := event.NewApproval("carol", "dave", types.NewAmount(3))
	approval.TokenID = tokenID
	approval.Sequence = 3

	// Out of order and with a duplicate.
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{e2, e1}))
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{e1, approval}))

	all, err := s.ListEvents(ctx, tokenID, event.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Sequence)
	}

	last, err := s.LastSequence(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)

	tests := []struct {
		name string
		opts event.ListOpts
		want []uint64
	}{
		{name: "after sequence", opts: event.ListOpts{AfterSequence: 1}, want: []uint64{2, 3}},
		{name: "kind", opts: event.ListOpts{Kind: event.KindApproval}, want: []uint64{3}},
		{name: "account", opts: event.ListOpts{Account: "carol"}, want: []uint64{2, 3}},
		{name: "limit offset", opts: event.ListOpts{Offset: 1, Limit: 1}, want: []uint64{2}},
		{name: "offset past end", opts: event.ListOpts{Offset: 5}, want: []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvents(ctx, tokenID, tt.opts)
			require.NoError(t, err)
			seqs := make([]uint64, len(got))
			for i, e := range got {
				seqs[i] = e.Sequence
			}
			assert.Equal(t, tt.want, seqs)
		})
	}

	other, err := s.ListEvents(ctx, id.NewTokenID(), event.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPurgeEvents(t *testing.T) {
	ctx := t.Context()
	s := memory.New()
	tokenID := id.NewTokenID()

	old := transfer(tokenID, 1, "alice", "bob", 1)
	old.Timestamp = time.Now().Add(-time.Hour)
	recent := transfer(tokenID, 2, "alice", "bob", 1)
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{old, recent}))

	n, err := s.PurgeEvents(ctx, tokenID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.ListEvents(ctx, tokenID, event.ListOpts{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(2), left[0].Sequence)
}

func TestSnapshots(t *testing.T) {
	ctx := t.Context()
	s := memory.New()
	tokenID := id.NewTokenID()

	_, err := s.LatestSnapshot(ctx, tokenID)
	require.ErrorIs(t, err, token.ErrSnapshotNotFound)

	first := &snapshot.Snapshot{
		Entity:      types.NewEntity(),
		ID:          id.NewSnapshotID(),
		TokenID:     tokenID,
		Sequence:    1,
		TotalSupply: types.NewAmount(5),
		Balances:    map[types.AccountID]types.Amount{"alice": types.NewAmount(5)},
	}
	second := first.Clone()
	second.ID = id.NewSnapshotID()
	second.Sequence = 4

	require.NoError(t, s.SaveSnapshot(ctx, first))
	require.NoError(t, s.SaveSnapshot(ctx, second))
	require.ErrorIs(t, s.SaveSnapshot(ctx, first), token.ErrAlreadyExists)

	latest, err := s.LatestSnapshot(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), latest.Sequence)

	// Stored copies are isolated from callers.
	latest.Balances["alice"] = types.NewAmount(1)
	again, err := s.GetSnapshot(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(5), again.Balances["alice"])

	list, err := s.ListSnapshots(ctx, tokenID, snapshot.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(4), list[0].Sequence)

	require.NoError(t, s.DeleteSnapshot(ctx, second.ID))
	require.ErrorIs(t, s.DeleteSnapshot(ctx, second.ID), token.ErrSnapshotNotFound)
	_, err = s.GetSnapshot(ctx, second.ID)
	require.ErrorIs(t, err, token.ErrSnapshotNotFound)
}

func TestClosedStore(t *testing.T) {
	ctx := t.Context()
	s := memory.New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), token.ErrStoreClosed)
	require.ErrorIs(t, s.AppendEvents(ctx, nil), token.ErrStoreClosed)
}
