package extension

import (
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/observability"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/store"
)

// Option configures the token Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a token.Option through to the underlying ledger.
func WithLedgerOption(opt token.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, token.WithPlugin(p))
	}
}

// WithMetricFactory registers the metrics plugin backed by f.
func WithMetricFactory(f observability.MetricFactory) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, token.WithPlugin(observability.NewMetricsExtension(f)))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithInitialSupply sets the supply credited to creator at build time.
func WithInitialSupply(supply, creator string) Option {
	return func(e *Extension) {
		e.config.InitialSupply = supply
		e.config.Creator = creator
	}
}

// WithMetadata sets the token's display metadata.
func WithMetadata(name, symbol string, decimals uint8) Option {
	return func(e *Extension) {
		e.config.Name = name
		e.config.Symbol = symbol
		e.config.Decimals = decimals
	}
}

// WithStrictAllowances enables strict allowance mode.
func WithStrictAllowances() Option {
	return func(e *Extension) { e.config.StrictAllowances = true }
}

// WithDisableMigrate leaves the ledger unstarted.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of events to buffer before flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}

// WithKafka publishes ledger events to topic on brokers.
func WithKafka(topic string, brokers ...string) Option {
	return func(e *Extension) {
		e.config.KafkaTopic = topic
		e.config.KafkaBrokers = brokers
	}
}
