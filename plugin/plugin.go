// Package plugin provides an extensible plugin system for the token ledger.
// Plugins implement any subset of the hook interfaces below; the registry
// discovers them by type assertion at registration time.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/token/event"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Mutation hooks
// ──────────────────────────────────────────────────

// OnTransfer is called after a committed Transfer or TransferFrom.
// evt.Caller is the acting account (the spender for TransferFrom).
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, evt *event.Event) error
}

// OnApproval is called after a committed Approve.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, evt *event.Event) error
}

// OnMint is called after new supply is credited.
type OnMint interface {
	Plugin
	OnMint(ctx context.Context, evt *event.Event) error
}

// OnBurn is called after supply is destroyed.
type OnBurn interface {
	Plugin
	OnBurn(ctx context.Context, evt *event.Event) error
}

// OnRejected is called when a mutation fails without changing state.
type OnRejected interface {
	Plugin
	OnRejected(ctx context.Context, op string, account types.AccountID, value types.Amount, err error) error
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnCheckpoint is called after a snapshot is persisted.
type OnCheckpoint interface {
	Plugin
	OnCheckpoint(ctx context.Context, snap *snapshot.Snapshot) error
}

// OnJournalFlushed is called after a batch of events reaches the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}
