package store

import (
	"context"
	"time"

	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
)

// Store is the unified storage interface for token ledger persistence:
// the event journal and state snapshots. Methods are declared explicitly
// rather than embedding event.Store and snapshot.Store so adapters read as
// one surface.
type Store interface {
	// Event journal methods
	AppendEvents(ctx context.Context, events []*event.Event) error
	ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Event, error)
	LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error)
	PurgeEvents(ctx context.Context, tokenID id.TokenID, before time.Time) (int64, error)

	// Snapshot methods
	SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error
	GetSnapshot(ctx context.Context, snapID id.SnapshotID) (*snapshot.Snapshot, error)
	LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*snapshot.Snapshot, error)
	ListSnapshots(ctx context.Context, tokenID id.TokenID, opts snapshot.ListOpts) ([]*snapshot.Snapshot, error)
	DeleteSnapshot(ctx context.Context, snapID id.SnapshotID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks that Store satisfies the per-entity interfaces.
var (
	_ event.Store    = Store(nil)
	_ snapshot.Store = Store(nil)
)
