package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/observability"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/types"
)

func TestMetricsExtensionWithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(
		observability.NewPrometheusFactory(reg, observability.WithNamespace("test")),
	)

	l := token.New(types.NewAmount(100), "alice",
		token.WithStore(memory.New()),
		token.WithPlugin(metrics),
	)
	require.NoError(t, l.Start(t.Context()))

	require.NoError(t, l.Transfer("alice", "bob", types.NewAmount(10)))
	require.NoError(t, l.Transfer("bob", "carol", types.NewAmount(5)))
	require.NoError(t, l.Approve("bob", "carol", types.NewAmount(5)))
	require.NoError(t, l.TransferFrom("carol", "bob", "carol", types.NewAmount(5)))
	require.NoError(t, l.Mint("dave", types.NewAmount(7)))
	require.NoError(t, l.Burn("dave", types.NewAmount(2)))
	require.Error(t, l.Transfer("bob", "alice", types.NewAmount(1)))
	require.Error(t, l.Mint("dave", types.MaxAmount()))
	require.NoError(t, l.Flush(t.Context()))
	require.NoError(t, l.Stop())

	counter := func(c observability.Counter) float64 {
		return testutil.ToFloat64(c.(prometheus.Counter))
	}

	assert.InDelta(t, 2, counter(metrics.Transfers), 0)
	assert.InDelta(t, 1, counter(metrics.TransferFroms), 0)
	assert.InDelta(t, 1, counter(metrics.Approvals), 0)
	assert.InDelta(t, 1, counter(metrics.Mints), 0)
	assert.InDelta(t, 7, counter(metrics.MintedVolume), 0)
	assert.InDelta(t, 2, counter(metrics.BurnedVolume), 0)
	assert.InDelta(t, 2, counter(metrics.Rejected), 0)
	assert.InDelta(t, 1, counter(metrics.RejectedInsufficient), 0)
	assert.InDelta(t, 1, counter(metrics.RejectedOverflow), 0)
	assert.InDelta(t, 1, counter(metrics.Checkpoints), 0)
	assert.InDelta(t, 6, counter(metrics.JournalEvents), 0)

	n, err := testutil.GatherAndCount(reg, "test_token_transfers_total", "test_token_journal_batch_size")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := observability.NewPrometheusFactory(reg).Counter("token.transfers")
	b := observability.NewPrometheusFactory(reg).Counter("token.transfers")
	a.Inc()
	b.Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(a.(prometheus.Counter)), 0)
}
