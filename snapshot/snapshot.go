// Package snapshot defines point-in-time copies of a token ledger's state
// and the store that persists them.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// ErrSupplyMismatch is returned by Verify when the balances do not add up
// to the recorded total supply.
var ErrSupplyMismatch = errors.New("snapshot: total supply does not match balances")

// Metadata describes the token a snapshot belongs to.
type Metadata struct {
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
}

// Allowance is one (owner, spender) entry.
type Allowance struct {
	Owner   types.AccountID `json:"owner"`
	Spender types.AccountID `json:"spender"`
	Value   types.Amount    `json:"value"`
}

// Snapshot is a self-contained copy of ledger state at Sequence. It owns
// its maps; mutating it never affects the ledger it came from.
type Snapshot struct {
	types.Entity

	ID          id.SnapshotID                    `json:"id"`
	TokenID     id.TokenID                       `json:"token_id"`
	Sequence    uint64                           `json:"sequence"`
	TotalSupply types.Amount                     `json:"total_supply"`
	Balances    map[types.AccountID]types.Amount `json:"balances"`
	Allowances  []Allowance                      `json:"allowances"`
	Metadata    Metadata                         `json:"metadata"`
}

// Verify checks that balances sum to TotalSupply without overflow and that
// no zero entries are stored.
func (s *Snapshot) Verify() error {
	var sum types.Amount
	for account, bal := range s.Balances {
		if bal.IsZero() {
			return fmt.Errorf("snapshot: zero balance stored for %q", account)
		}
		var ok bool
		if sum, ok = sum.Add(bal); !ok {
			return fmt.Errorf("%w: balances overflow", ErrSupplyMismatch)
		}
	}
	if !sum.Equal(s.TotalSupply) {
		return fmt.Errorf("%w: balances %s, total supply %s", ErrSupplyMismatch, sum, s.TotalSupply)
	}

	seen := make(map[[2]types.AccountID]struct{}, len(s.Allowances))
	for _, a := range s.Allowances {
		key := [2]types.AccountID{a.Owner, a.Spender}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("snapshot: duplicate allowance %q -> %q", a.Owner, a.Spender)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Balances = make(map[types.AccountID]types.Amount, len(s.Balances))
	for k, v := range s.Balances {
		c.Balances[k] = v
	}
	c.Allowances = append([]Allowance(nil), s.Allowances...)
	return &c
}

// SortAllowances orders allowances by owner then spender so encoded
// snapshots are deterministic.
func (s *Snapshot) SortAllowances() {
	sort.Slice(s.Allowances, func(i, j int) bool {
		if s.Allowances[i].Owner != s.Allowances[j].Owner {
			return s.Allowances[i].Owner < s.Allowances[j].Owner
		}
		return s.Allowances[i].Spender < s.Allowances[j].Spender
	})
}

// Store persists snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, snapID id.SnapshotID) (*Snapshot, error)
	// LatestSnapshot returns the snapshot with the highest Sequence.
	LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*Snapshot, error)
	ListSnapshots(ctx context.Context, tokenID id.TokenID, opts ListOpts) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, snapID id.SnapshotID) error
}

// ListOpts paginates ListSnapshots. Results are newest first.
type ListOpts struct {
	Limit  int
	Offset int
}
