// Package extension provides the Forge extension adapter for the token
// ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.token" or "token" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/token"
	"github.com/xraph/token/event/kafka"
	"github.com/xraph/token/id"
	"github.com/xraph/token/observability"
	"github.com/xraph/token/store"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "token"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fungible token ledger with journaled events"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the token ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *token.Ledger
	store      store.Store
	sink       *kafka.Sink
	ledgerOpts []token.Option
}

// New creates a new token Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *token.Ledger { return e.ledger }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration, builds
// the ledger and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	l, err := e.buildLedger(context.Background())
	if err != nil {
		return err
	}
	e.ledger = l

	return vessel.Provide(fapp.Container(), func() (*token.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("token: extension not initialized")
	}

	if e.sink != nil {
		e.sink.Start(ctx)
	}

	if !e.config.DisableMigrate {
		if err := e.ledger.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	defer e.MarkStopped()

	var errs token.MultiError
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil && !errors.Is(err, token.ErrNotStarted) {
			errs.Add(err)
		}
	}
	if e.sink != nil {
		errs.Add(e.sink.Close())
	}
	return errs.ErrorOrNil()
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("token: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedger constructs the ledger from the resolved config. A pinned
// token ID reopens the ledger from the store, so persisted balances
// survive a restart.
func (e *Extension) buildLedger(ctx context.Context) (*token.Ledger, error) {
	supply, err := types.ParseAmount(e.config.InitialSupply)
	if err != nil {
		return nil, fmt.Errorf("token: initial_supply: %w", err)
	}
	creator := types.ParseAccountID(e.config.Creator)
	if !supply.IsZero() && creator.IsZero() {
		return nil, token.ValidationError{Field: "creator", Message: "required when initial_supply is set"}
	}

	opts := make([]token.Option, 0, len(e.ledgerOpts)+7)
	opts = append(opts,
		token.WithStore(e.store),
		token.WithMetadata(e.config.Name, e.config.Symbol, e.config.Decimals),
		token.WithJournalConfig(e.config.JournalBatchSize, e.config.JournalFlushInterval),
		token.WithJournalBufferSize(e.config.JournalBufferSize),
	)

	var tokenID id.TokenID
	if e.config.TokenID != "" {
		tokenID, err = id.ParseTokenID(e.config.TokenID)
		if err != nil {
			return nil, fmt.Errorf("token: token_id: %w", err)
		}
	}

	if e.config.StrictAllowances {
		opts = append(opts, token.WithStrictAllowances())
	}

	if e.config.KafkaTopic != "" && len(e.config.KafkaBrokers) > 0 {
		e.sink = kafka.NewSink(e.config.KafkaBrokers, e.config.KafkaTopic)
		opts = append(opts, token.WithSink(e.sink))
	}

	if e.config.MetricsNamespace != "" {
		factory := observability.NewPrometheusFactory(nil, observability.WithNamespace(e.config.MetricsNamespace))
		opts = append(opts, token.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Pass-through options last so they win.
	opts = append(opts, e.ledgerOpts...)

	if tokenID.IsNil() {
		return token.New(supply, creator, opts...), nil
	}

	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	l, err := token.Open(ctx, e.store, tokenID, supply, creator, opts...)
	if err != nil {
		return nil, err
	}
	if logger := e.Logger(); logger != nil && l.Sequence() > 0 {
		logger.Info("token: ledger reopened from store",
			forge.F("token_id", tokenID.String()),
			forge.F("sequence", l.Sequence()),
		)
	}
	return l, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("token: configuration is required but not found in config files; " +
				"ensure 'extensions.token' or 'token' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("token: configuration loaded",
		forge.F("symbol", e.config.Symbol),
		forge.F("decimals", e.config.Decimals),
		forge.F("strict_allowances", e.config.StrictAllowances),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("kafka_topic", e.config.KafkaTopic),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.token", "token"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("token: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("token: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.InitialSupply == "" {
		cfg.InitialSupply = defaults.InitialSupply
	}
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.JournalBufferSize == 0 {
		cfg.JournalBufferSize = defaults.JournalBufferSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.StrictAllowances {
		yamlConfig.StrictAllowances = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&yamlConfig.InitialSupply, programmaticConfig.InitialSupply)
	fill(&yamlConfig.Creator, programmaticConfig.Creator)
	fill(&yamlConfig.TokenID, programmaticConfig.TokenID)
	fill(&yamlConfig.Name, programmaticConfig.Name)
	fill(&yamlConfig.Symbol, programmaticConfig.Symbol)
	fill(&yamlConfig.KafkaTopic, programmaticConfig.KafkaTopic)
	fill(&yamlConfig.MetricsNamespace, programmaticConfig.MetricsNamespace)

	if yamlConfig.Decimals == 0 {
		yamlConfig.Decimals = programmaticConfig.Decimals
	}
	if len(yamlConfig.KafkaBrokers) == 0 {
		yamlConfig.KafkaBrokers = programmaticConfig.KafkaBrokers
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.JournalBatchSize == 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}
	if yamlConfig.JournalBufferSize == 0 {
		yamlConfig.JournalBufferSize = programmaticConfig.JournalBufferSize
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
