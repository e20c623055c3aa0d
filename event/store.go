package event

import (
	"context"
	"time"

	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// Store persists the event journal of one or more ledgers.
type Store interface {
	// AppendEvents stores a batch of events. Events whose ID is already
	// stored are skipped.
	AppendEvents(ctx context.Context, events []*Event) error
	// ListEvents returns events of one token ordered by Sequence.
	ListEvents(ctx context.Context, tokenID id.TokenID, opts ListOpts) ([]*Event, error)
	// LastSequence returns the highest stored sequence, or 0.
	LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error)
	// PurgeEvents removes events older than before and returns the count.
	PurgeEvents(ctx context.Context, tokenID id.TokenID, before time.Time) (int64, error)
}

// ListOpts filters ListEvents.
type ListOpts struct {
	AfterSequence uint64
	Kind          Kind
	Account       types.AccountID
	Start         time.Time
	End           time.Time
	Limit         int
	Offset        int
}

// Match reports whether e passes the filters, ignoring Limit and Offset.
func (o ListOpts) Match(e *Event) bool {
	if e.Sequence <= o.AfterSequence {
		return false
	}
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	if o.Account != "" && !e.Involves(o.Account) {
		return false
	}
	if !o.Start.IsZero() && e.Timestamp.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && !e.Timestamp.Before(o.End) {
		return false
	}
	return true
}
