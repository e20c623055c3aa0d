package token

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/store"
	"github.com/xraph/token/types"
)

// Snapshot returns a deep copy of the current state. The copy is
// consistent: it reflects every event up to and including its Sequence.
func (l *Ledger) Snapshot() *snapshot.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{
		Entity:      types.NewEntity(),
		ID:          id.NewSnapshotID(),
		TokenID:     l.tokenID,
		Sequence:    l.seq,
		TotalSupply: l.totalSupply,
		Balances:    make(map[types.AccountID]types.Amount, len(l.balances)),
		Allowances:  make([]snapshot.Allowance, 0, len(l.allowances)),
		Metadata:    l.meta,
	}
	for account, bal := range l.balances {
		snap.Balances[account] = bal
	}
	for key, value := range l.allowances {
		snap.Allowances = append(snap.Allowances, snapshot.Allowance{
			Owner:   key.owner,
			Spender: key.spender,
			Value:   value,
		})
	}
	snap.SortAllowances()
	return snap
}

// Restore builds a ledger from a snapshot. The snapshot is verified first;
// a snapshot whose balances do not sum to its total supply is rejected
// with ErrCorruptSnapshot. Token ID, metadata and sequence come from the
// snapshot.
func Restore(snap *snapshot.Snapshot, opts ...Option) (*Ledger, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}
	if err := snap.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	l := newLedger(append(opts, WithTokenID(snap.TokenID))...)
	l.meta = snap.Metadata
	l.seq = snap.Sequence
	l.totalSupply = snap.TotalSupply
	for account, bal := range snap.Balances {
		l.balances[account] = bal
	}
	for _, a := range snap.Allowances {
		setAmount(l.allowances, allowanceKey{a.Owner, a.Spender}, a.Value)
	}
	return l, nil
}

// Checkpoint persists a snapshot of the current state to the store.
func (l *Ledger) Checkpoint(ctx context.Context) (*snapshot.Snapshot, error) {
	if l.store == nil {
		return nil, ErrNoStore
	}

	snap := l.Snapshot()
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("token: checkpoint: %w", err)
	}

	l.plugins.EmitCheckpoint(ctx, snap)
	l.logger.Info("checkpoint saved",
		"token_id", l.tokenID.String(),
		"snapshot_id", snap.ID.String(),
		"sequence", snap.Sequence,
		"holders", len(snap.Balances),
	)
	return snap, nil
}

// Load rebuilds a ledger from the latest snapshot in s and replays the
// journaled events recorded after it. Strict allowance mode must match the
// mode the events were produced under. s becomes the ledger's store.
func Load(ctx context.Context, s store.Store, tokenID id.TokenID, opts ...Option) (*Ledger, error) {
	snap, err := s.LatestSnapshot(ctx, tokenID)
	switch {
	case IsNotFound(err):
		snap = &snapshot.Snapshot{TokenID: tokenID, Balances: map[types.AccountID]types.Amount{}}
	case err != nil:
		return nil, fmt.Errorf("token: load snapshot: %w", err)
	}

	l, err := Restore(snap, append(opts, WithStore(s))...)
	if err != nil {
		return nil, err
	}

	events, err := s.ListEvents(ctx, tokenID, event.ListOpts{AfterSequence: snap.Sequence})
	if err != nil {
		return nil, fmt.Errorf("token: load events: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, evt := range events {
		if err := l.replay(evt); err != nil {
			return nil, fmt.Errorf("%w: replay sequence %d: %w", ErrCorruptSnapshot, evt.Sequence, err)
		}
	}

	l.logger.Info("token ledger loaded",
		"token_id", tokenID.String(),
		"snapshot_sequence", snap.Sequence,
		"replayed", len(events),
	)
	return l, nil
}

// Open reopens tokenID from s when s holds a snapshot or journaled events
// for it. Otherwise it creates a fresh ledger under tokenID whose initial
// supply belongs to creator; initialSupply and creator are ignored when
// state is loaded. s becomes the ledger's store and must already be
// migrated.
func Open(ctx context.Context, s store.Store, tokenID id.TokenID, initialSupply types.Amount, creator types.AccountID, opts ...Option) (*Ledger, error) {
	_, err := s.LatestSnapshot(ctx, tokenID)
	switch {
	case err == nil:
		return Load(ctx, s, tokenID, opts...)
	case !IsNotFound(err):
		return nil, fmt.Errorf("token: open: %w", err)
	}

	last, err := s.LastSequence(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("token: open: %w", err)
	}
	if last > 0 {
		return Load(ctx, s, tokenID, opts...)
	}

	return New(initialSupply, creator, append(opts, WithStore(s), WithTokenID(tokenID))...), nil
}

// replay applies a journaled event without re-emitting it. Must hold l.mu.
func (l *Ledger) replay(evt *event.Event) error {
	if evt.Sequence != l.seq+1 {
		return fmt.Errorf("sequence gap: have %d, got %d", l.seq, evt.Sequence)
	}

	switch {
	case evt.Approval != nil:
		a := evt.Approval
		key := allowanceKey{a.Owner, a.Spender}
		next, ok := l.allowances[key].Add(a.Value)
		if !ok {
			return ErrOverflow
		}
		setAmount(l.allowances, key, next)

	case evt.Transfer != nil && evt.Transfer.IsMint() && evt.Transfer.IsBurn():
		return errors.New("transfer has neither sender nor recipient")

	case evt.Transfer != nil && evt.Transfer.IsMint():
		t := evt.Transfer
		supply, ok := l.totalSupply.Add(t.Value)
		if !ok {
			return ErrOverflow
		}
		bal, ok := l.balances[*t.To].Add(t.Value)
		if !ok {
			return ErrOverflow
		}
		l.totalSupply = supply
		setAmount(l.balances, *t.To, bal)

	case evt.Transfer != nil && evt.Transfer.IsBurn():
		t := evt.Transfer
		bal, ok := l.balances[*t.From].Sub(t.Value)
		if !ok {
			return ErrInsufficientBalance
		}
		supply, ok := l.totalSupply.Sub(t.Value)
		if !ok {
			return ErrSupplyMismatch
		}
		l.totalSupply = supply
		setAmount(l.balances, *t.From, bal)

	case evt.Transfer != nil:
		t := evt.Transfer
		if err := l.move(evt.Op, *t.From, *t.To, t.Value); err != nil {
			return err
		}
		if l.strict && evt.Op == OpTransferFrom {
			key := allowanceKey{*t.From, evt.Caller}
			remaining, ok := l.allowances[key].Sub(t.Value)
			if !ok {
				return ErrInsufficientBalance
			}
			setAmount(l.allowances, key, remaining)
		}

	default:
		return errors.New("event carries no payload")
	}

	l.seq = evt.Sequence
	return nil
}

// Verify recomputes the sum of all balances with checked arithmetic and
// compares it to the total supply.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sum types.Amount
	for account, bal := range l.balances {
		var ok bool
		if sum, ok = sum.Add(bal); !ok {
			return fmt.Errorf("%w: summing balances at %q", ErrOverflow, account)
		}
	}
	if !sum.Equal(l.totalSupply) {
		return fmt.Errorf("%w: balances %s, total supply %s", ErrSupplyMismatch, sum, l.totalSupply)
	}
	return nil
}

// Holders returns every account with a non-zero balance, sorted.
func (l *Ledger) Holders() []types.AccountID {
	l.mu.Lock()
	holders := make([]types.AccountID, 0, len(l.balances))
	for account := range l.balances {
		holders = append(holders, account)
	}
	l.mu.Unlock()

	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	return holders
}
