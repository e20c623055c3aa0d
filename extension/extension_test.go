package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/id"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/types"
)

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Symbol: "EXM", JournalBatchSize: 10}
	prog := Config{
		Symbol:           "IGNORED",
		Creator:          "alice",
		InitialSupply:    "1000",
		StrictAllowances: true,
		KafkaBrokers:     []string{"localhost:9092"},
	}

	cfg := mergeConfigurations(yaml, prog)

	assert.Equal(t, "EXM", cfg.Symbol)
	assert.Equal(t, "alice", cfg.Creator)
	assert.Equal(t, "1000", cfg.InitialSupply)
	assert.True(t, cfg.StrictAllowances)
	assert.Equal(t, 10, cfg.JournalBatchSize)
	assert.Equal(t, 5*time.Second, cfg.JournalFlushInterval)
	assert.Equal(t, 10000, cfg.JournalBufferSize)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{})
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestBuildLedger(t *testing.T) {
	tokenID := id.NewTokenID()
	e := New(
		WithStore(memory.New()),
		WithInitialSupply("1000", "alice"),
		WithMetadata("Example", "EXM", 2),
		WithStrictAllowances(),
		WithLedgerOption(token.WithTokenID(tokenID)),
	)
	e.config = mergeWithDefaults(e.config)

	l, err := e.buildLedger(t.Context())
	require.NoError(t, err)

	assert.Equal(t, tokenID.String(), l.TokenID().String())
	assert.Equal(t, types.NewAmount(1000), l.BalanceOf("alice"))
	assert.Equal(t, "10.00 EXM", l.Display(types.NewAmount(1000)))
	assert.True(t, l.StrictAllowances())
	assert.NotNil(t, l.Store())
}

func TestBuildLedgerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad supply", cfg: Config{InitialSupply: "-1"}},
		{name: "supply without creator", cfg: Config{InitialSupply: "10"}},
		{name: "bad token id", cfg: Config{InitialSupply: "0", TokenID: "snap_01h455vb4pex5vsknk084sn02q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithConfig(tt.cfg), WithStore(memory.New()))
			_, err := e.buildLedger(t.Context())
			require.Error(t, err)
		})
	}

	e := New(WithConfig(Config{InitialSupply: "10"}))
	_, err := e.buildLedger(t.Context())
	require.ErrorIs(t, err, token.ErrInvalidInput)
}

func TestBuildLedgerReopensPinnedToken(t *testing.T) {
	ctx := t.Context()
	store := memory.New()
	cfg := Config{
		InitialSupply: "1000",
		Creator:       "alice",
		TokenID:       id.NewTokenID().String(),
	}

	first := New(WithConfig(cfg), WithStore(store))
	first.config = mergeWithDefaults(first.config)
	l, err := first.buildLedger(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Transfer("alice", "bob", types.NewAmount(10)))
	require.NoError(t, l.Flush(ctx))

	second := New(WithConfig(cfg), WithStore(store))
	second.config = mergeWithDefaults(second.config)
	reopened, err := second.buildLedger(ctx)
	require.NoError(t, err)

	assert.Equal(t, cfg.TokenID, reopened.TokenID().String())
	assert.Equal(t, types.NewAmount(990), reopened.BalanceOf("alice"))
	assert.Equal(t, types.NewAmount(10), reopened.BalanceOf("bob"))
	assert.Equal(t, uint64(1), reopened.Sequence())

	require.NoError(t, reopened.Transfer("bob", "carol", types.NewAmount(4)))
	require.NoError(t, reopened.Flush(ctx))

	loaded, err := token.Load(ctx, store, reopened.TokenID())
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(6), loaded.BalanceOf("bob"))
	assert.Equal(t, types.NewAmount(4), loaded.BalanceOf("carol"))
	assert.Equal(t, uint64(2), loaded.Sequence())
}
