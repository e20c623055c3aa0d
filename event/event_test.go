package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token/event"
	"github.com/xraph/token/types"
)

func TestNewTransfer(t *testing.T) {
	alice := types.AccountID("alice")

	mint := event.NewTransfer(nil, alice.Ptr(), types.NewAmount(10))
	assert.Equal(t, event.KindTransfer, mint.Kind)
	assert.True(t, mint.Transfer.IsMint())
	assert.False(t, mint.Transfer.IsBurn())
	assert.Equal(t, types.NewAmount(10), mint.Value())
	assert.Equal(t, "evt", string(mint.ID.Prefix()))

	burn := event.NewTransfer(alice.Ptr(), nil, types.NewAmount(3))
	assert.True(t, burn.Transfer.IsBurn())
	assert.True(t, burn.Involves(alice))
	assert.False(t, burn.Involves("bob"))
}

func TestApprovalInvolves(t *testing.T) {
	e := event.NewApproval("alice", "bob", types.NewAmount(5))
	assert.True(t, e.Involves("alice"))
	assert.True(t, e.Involves("bob"))
	assert.False(t, e.Involves("carol"))
	assert.Nil(t, e.Transfer)
}

func TestCloneIsDeep(t *testing.T) {
	alice, bob := types.AccountID("alice"), types.AccountID("bob")
	e := event.NewTransfer(alice.Ptr(), bob.Ptr(), types.NewAmount(1))

	c := e.Clone()
	*c.Transfer.From = "mallory"

	assert.Equal(t, alice, *e.Transfer.From)
}

func TestMultiJoinsErrors(t *testing.T) {
	log := event.NewLog()
	boom := errors.New("boom")
	failing := event.SinkFunc(func(*event.Event) error { return boom })

	err := event.Multi(log, failing).Emit(event.NewApproval("a", "b", types.NewAmount(1)))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, log.Len(), "healthy sinks still receive the event")
}

func TestLogSince(t *testing.T) {
	log := event.NewLog()
	for seq := uint64(1); seq <= 5; seq++ {
		e := event.NewApproval("a", "b", types.NewAmount(seq))
		e.Sequence = seq
		require.NoError(t, log.Emit(e))
	}

	assert.Equal(t, 5, log.Len())
	assert.Len(t, log.Since(3), 2)
	assert.Equal(t, uint64(5), log.Last().Sequence)

	log.Reset()
	assert.Nil(t, log.Last())
}

func TestListOptsMatch(t *testing.T) {
	alice := types.AccountID("alice")
	now := time.Now().UTC()

	e := event.NewTransfer(alice.Ptr(), types.AccountID("bob").Ptr(), types.NewAmount(1))
	e.Sequence = 7
	e.Timestamp = now

	tests := []struct {
		name string
		opts event.ListOpts
		want bool
	}{
		{"empty", event.ListOpts{}, true},
		{"after lower", event.ListOpts{AfterSequence: 6}, true},
		{"after equal", event.ListOpts{AfterSequence: 7}, false},
		{"kind match", event.ListOpts{Kind: event.KindTransfer}, true},
		{"kind mismatch", event.ListOpts{Kind: event.KindApproval}, false},
		{"account", event.ListOpts{Account: alice}, true},
		{"other account", event.ListOpts{Account: "carol"}, false},
		{"window", event.ListOpts{Start: now.Add(-time.Minute), End: now.Add(time.Minute)}, true},
		{"end exclusive", event.ListOpts{End: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Match(e))
		})
	}
}
