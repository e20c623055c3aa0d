// Package memory provides an in-process Store for tests and single-node
// deployments. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Event journal, per token, ordered by sequence
	events   map[string][]*event.Event
	eventIDs map[string]struct{}

	// Snapshot storage
	snapshots map[string]*snapshot.Snapshot

	closed bool
}

func New() *Store {
	return &Store{
		events:    make(map[string][]*event.Event),
		eventIDs:  make(map[string]struct{}),
		snapshots: make(map[string]*snapshot.Snapshot),
	}
}

// Event Store implementation
func (s *Store) AppendEvents(_ context.Context, events []*event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return token.ErrStoreClosed
	}

	touched := make(map[string]struct{})
	for _, e := range events {
		if _, dup := s.eventIDs[e.ID.String()]; dup {
			continue
		}
		key := e.TokenID.String()
		s.events[key] = append(s.events[key], e.Clone())
		s.eventIDs[e.ID.String()] = struct{}{}
		touched[key] = struct{}{}
	}

	for key := range touched {
		list := s.events[key]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	}
	return nil
}

func (s *Store) ListEvents(_ context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0)
	for _, e := range s.events[tokenID.String()] {
		if opts.Match(e) {
			result = append(result, e.Clone())
		}
	}

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) LastSequence(_ context.Context, tokenID id.TokenID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.events[tokenID.String()]
	if len(list) == 0 {
		return 0, nil
	}
	return list[len(list)-1].Sequence, nil
}

func (s *Store) PurgeEvents(_ context.Context, tokenID id.TokenID, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	key := tokenID.String()
	kept := make([]*event.Event, 0, len(s.events[key]))
	for _, e := range s.events[key] {
		if e.Timestamp.Before(before) {
			delete(s.eventIDs, e.ID.String())
			count++
		} else {
			kept = append(kept, e)
		}
	}
	s.events[key] = kept
	return count, nil
}

// Snapshot Store implementation
func (s *Store) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return token.ErrStoreClosed
	}
	if _, exists := s.snapshots[snap.ID.String()]; exists {
		return token.ErrAlreadyExists
	}
	s.snapshots[snap.ID.String()] = snap.Clone()
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, snapID id.SnapshotID) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.snapshots[snapID.String()]; ok {
		return snap.Clone(), nil
	}
	return nil, token.ErrSnapshotNotFound
}

func (s *Store) LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*snapshot.Snapshot, error) {
	list, err := s.ListSnapshots(ctx, tokenID, snapshot.ListOpts{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, token.ErrSnapshotNotFound
	}
	return list[0], nil
}

func (s *Store) ListSnapshots(_ context.Context, tokenID id.TokenID, opts snapshot.ListOpts) ([]*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*snapshot.Snapshot, 0)
	for _, snap := range s.snapshots {
		if snap.TokenID.String() == tokenID.String() {
			result = append(result, snap.Clone())
		}
	}

	// Newest first; TypeIDs are time-ordered and break sequence ties.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Sequence != result[j].Sequence {
			return result[i].Sequence > result[j].Sequence
		}
		return result[i].ID.String() > result[j].ID.String()
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) DeleteSnapshot(_ context.Context, snapID id.SnapshotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[snapID.String()]; !ok {
		return token.ErrSnapshotNotFound
	}
	delete(s.snapshots, snapID.String())
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return token.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	start := min(offset, len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
