package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/token/event"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// DefaultTimeout bounds every plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onTransfer       []OnTransfer
	onApproval       []OnApproval
	onMint           []OnMint
	onBurn           []OnBurn
	onRejected       []OnRejected
	onCheckpoint     []OnCheckpoint
	onJournalFlushed []OnJournalFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnMint); ok {
		r.onMint = append(r.onMint, v)
	}
	if v, ok := p.(OnBurn); ok {
		r.onBurn = append(r.onBurn, v)
	}
	if v, ok := p.(OnRejected); ok {
		r.onRejected = append(r.onRejected, v)
	}
	if v, ok := p.(OnCheckpoint); ok {
		r.onCheckpoint = append(r.onCheckpoint, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnTransfer](), "OnTransfer"},
	{reflect.TypeFor[OnApproval](), "OnApproval"},
	{reflect.TypeFor[OnMint](), "OnMint"},
	{reflect.TypeFor[OnBurn](), "OnBurn"},
	{reflect.TypeFor[OnRejected](), "OnRejected"},
	{reflect.TypeFor[OnCheckpoint](), "OnCheckpoint"},
	{reflect.TypeFor[OnJournalFlushed](), "OnJournalFlushed"},
}

// implementedInterfaces returns the hook names a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, l)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitEvent routes a committed event to the matching mutation hook:
// approvals to OnApproval, mints to OnMint, burns to OnBurn and all other
// transfers to OnTransfer.
func (r *Registry) EmitEvent(ctx context.Context, evt *event.Event) {
	switch {
	case evt.Approval != nil:
		r.mu.RLock()
		plugins := r.onApproval
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnApproval", func() error {
				return p.OnApproval(ctx, evt)
			})
		}
	case evt.Transfer != nil && evt.Transfer.IsMint():
		r.mu.RLock()
		plugins := r.onMint
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnMint", func() error {
				return p.OnMint(ctx, evt)
			})
		}
	case evt.Transfer != nil && evt.Transfer.IsBurn():
		r.mu.RLock()
		plugins := r.onBurn
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnBurn", func() error {
				return p.OnBurn(ctx, evt)
			})
		}
	case evt.Transfer != nil:
		r.mu.RLock()
		plugins := r.onTransfer
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnTransfer", func() error {
				return p.OnTransfer(ctx, evt)
			})
		}
	}
}

// EmitRejected calls OnRejected for all plugins that implement it.
func (r *Registry) EmitRejected(ctx context.Context, op string, account types.AccountID, value types.Amount, err error) {
	r.mu.RLock()
	plugins := r.onRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnRejected", func() error {
			return p.OnRejected(ctx, op, account, value, err)
		})
	}
}

// EmitCheckpoint calls OnCheckpoint for all plugins that implement it.
func (r *Registry) EmitCheckpoint(ctx context.Context, snap *snapshot.Snapshot) {
	r.mu.RLock()
	plugins := r.onCheckpoint
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnCheckpoint", func() error {
			return p.OnCheckpoint(ctx, snap)
		})
	}
}

// EmitJournalFlushed calls OnJournalFlushed for all plugins that implement it.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnJournalFlushed", func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, name, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, name, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", name,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
