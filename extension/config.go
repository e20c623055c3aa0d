package extension

import "time"

// Config holds the token extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.token" or "token" keys).
type Config struct {
	// InitialSupply is the decimal base-unit supply credited to Creator
	// when the ledger is built (default: "0").
	InitialSupply string `json:"initial_supply" mapstructure:"initial_supply" yaml:"initial_supply"`

	// Creator is the account that receives the initial supply.
	Creator string `json:"creator" mapstructure:"creator" yaml:"creator"`

	// TokenID pins the ledger identity ("tok_..."). A new one is generated
	// when empty.
	TokenID string `json:"token_id" mapstructure:"token_id" yaml:"token_id"`

	// Name, Symbol and Decimals describe the token for display.
	Name     string `json:"name" mapstructure:"name" yaml:"name"`
	Symbol   string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals" yaml:"decimals"`

	// StrictAllowances makes TransferFrom consume the allowance granted to
	// the caller.
	StrictAllowances bool `json:"strict_allowances" mapstructure:"strict_allowances" yaml:"strict_allowances"`

	// DisableMigrate leaves the ledger unstarted: no migrations and no
	// journal worker.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// JournalBatchSize is the number of events to buffer before flushing
	// to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal is flushed even
	// if the batch size has not been reached (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// JournalBufferSize bounds events waiting for the journal worker
	// (default: 10000).
	JournalBufferSize int `json:"journal_buffer_size" mapstructure:"journal_buffer_size" yaml:"journal_buffer_size"`

	// KafkaBrokers and KafkaTopic enable the Kafka event sink when both
	// are set.
	KafkaBrokers []string `json:"kafka_brokers" mapstructure:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic" mapstructure:"kafka_topic" yaml:"kafka_topic"`

	// MetricsNamespace enables Prometheus metrics under this namespace.
	MetricsNamespace string `json:"metrics_namespace" mapstructure:"metrics_namespace" yaml:"metrics_namespace"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		InitialSupply:        "0",
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
		JournalBufferSize:    10000,
	}
}
