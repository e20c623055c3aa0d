// Package observability provides a metrics extension for the token ledger
// that records operation counts, volumes and journal latency via a
// MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnTransfer       = (*MetricsExtension)(nil)
	_ plugin.OnApproval       = (*MetricsExtension)(nil)
	_ plugin.OnMint           = (*MetricsExtension)(nil)
	_ plugin.OnBurn           = (*MetricsExtension)(nil)
	_ plugin.OnRejected       = (*MetricsExtension)(nil)
	_ plugin.OnCheckpoint     = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide metrics.
// Register it as a ledger plugin to track activity automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Mutation metrics
	Transfers      Counter
	TransferFroms  Counter
	Approvals      Counter
	Mints          Counter
	Burns          Counter
	TransferVolume Histogram
	MintedVolume   Counter
	BurnedVolume   Counter

	// Rejection metrics
	Rejected             Counter
	RejectedInsufficient Counter
	RejectedOverflow     Counter

	// Persistence metrics
	Checkpoints         Counter
	CheckpointHolders   Histogram
	JournalEvents       Counter
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		Transfers:      factory.Counter("token.transfers"),
		TransferFroms:  factory.Counter("token.transfers.delegated"),
		Approvals:      factory.Counter("token.approvals"),
		Mints:          factory.Counter("token.mints"),
		Burns:          factory.Counter("token.burns"),
		TransferVolume: factory.Histogram("token.transfer.value"),
		MintedVolume:   factory.Counter("token.minted.value"),
		BurnedVolume:   factory.Counter("token.burned.value"),

		Rejected:             factory.Counter("token.rejected"),
		RejectedInsufficient: factory.Counter("token.rejected.insufficient"),
		RejectedOverflow:     factory.Counter("token.rejected.overflow"),

		Checkpoints:         factory.Counter("token.checkpoints"),
		CheckpointHolders:   factory.Histogram("token.checkpoint.holders"),
		JournalEvents:       factory.Counter("token.journal.events"),
		JournalBatchSize:    factory.Histogram("token.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("token.journal.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, evt *event.Event) error {
	if evt.Op == event.OpTransferFrom {
		m.TransferFroms.Inc()
	} else {
		m.Transfers.Inc()
	}
	m.TransferVolume.Observe(toFloat(evt.Transfer.Value))
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, _ *event.Event) error {
	m.Approvals.Inc()
	return nil
}

// OnMint implements plugin.OnMint.
func (m *MetricsExtension) OnMint(_ context.Context, evt *event.Event) error {
	m.Mints.Inc()
	m.MintedVolume.Add(toFloat(evt.Transfer.Value))
	return nil
}

// OnBurn implements plugin.OnBurn.
func (m *MetricsExtension) OnBurn(_ context.Context, evt *event.Event) error {
	m.Burns.Inc()
	m.BurnedVolume.Add(toFloat(evt.Transfer.Value))
	return nil
}

// OnRejected implements plugin.OnRejected.
func (m *MetricsExtension) OnRejected(_ context.Context, _ string, _ types.AccountID, _ types.Amount, err error) error {
	m.Rejected.Inc()
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		m.RejectedInsufficient.Inc()
	case errors.Is(err, token.ErrOverflow):
		m.RejectedOverflow.Inc()
	}
	return nil
}

// OnCheckpoint implements plugin.OnCheckpoint.
func (m *MetricsExtension) OnCheckpoint(_ context.Context, snap *snapshot.Snapshot) error {
	m.Checkpoints.Inc()
	m.CheckpointHolders.Observe(float64(len(snap.Balances)))
	return nil
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalEvents.Add(float64(count))
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// toFloat converts base units to float64. Precision loss above 2^53 is
// acceptable for metrics.
func toFloat(a types.Amount) float64 {
	return a.Decimal(0).InexactFloat64()
}
