package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:token_events"`

	ID          string       `grove:"id,pk"`
	TokenID     string       `grove:"token_id"`
	Sequence    int64        `grove:"sequence"`
	Kind        string       `grove:"kind"`
	Op          string       `grove:"op"`
	Caller      string       `grove:"caller"`
	FromAccount *string      `grove:"from_account"`
	ToAccount   *string      `grove:"to_account"`
	Owner       *string      `grove:"owner"`
	Spender     *string      `grove:"spender"`
	Value       types.Amount `grove:"value"`
	Timestamp   time.Time    `grove:"timestamp"`
	CreatedAt   time.Time    `grove:"created_at"`
}

func toEventModel(e *event.Event) *eventModel {
	m := &eventModel{
		ID:        e.ID.String(),
		TokenID:   e.TokenID.String(),
		Sequence:  int64(e.Sequence), //nolint:gosec // sequences stay far below 2^63
		Kind:      string(e.Kind),
		Op:        e.Op,
		Caller:    e.Caller.String(),
		Value:     e.Value(),
		Timestamp: e.Timestamp,
		CreatedAt: now(),
	}
	if t := e.Transfer; t != nil {
		m.FromAccount = accountPtr(t.From)
		m.ToAccount = accountPtr(t.To)
	}
	if a := e.Approval; a != nil {
		owner, spender := a.Owner.String(), a.Spender.String()
		m.Owner, m.Spender = &owner, &spender
	}
	return m
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}

	e := &event.Event{
		ID:        evtID,
		TokenID:   tokenID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // written from a uint64
		Kind:      event.Kind(m.Kind),
		Op:        m.Op,
		Caller:    types.AccountID(m.Caller),
		Timestamp: m.Timestamp,
	}

	switch e.Kind {
	case event.KindTransfer:
		e.Transfer = &event.Transfer{
			From:  fromAccountPtr(m.FromAccount),
			To:    fromAccountPtr(m.ToAccount),
			Value: m.Value,
		}
	case event.KindApproval:
		if m.Owner == nil || m.Spender == nil {
			return nil, fmt.Errorf("token/sqlite: approval %s missing parties", m.ID)
		}
		e.Approval = &event.Approval{
			Owner:   types.AccountID(*m.Owner),
			Spender: types.AccountID(*m.Spender),
			Value:   m.Value,
		}
	default:
		return nil, fmt.Errorf("token/sqlite: event %s has unknown kind %q", m.ID, m.Kind)
	}
	return e, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:token_snapshots"`

	ID          string          `grove:"id,pk"`
	TokenID     string          `grove:"token_id"`
	Sequence    int64           `grove:"sequence"`
	TotalSupply types.Amount    `grove:"total_supply"`
	Balances    json.RawMessage `grove:"balances"`
	Allowances  json.RawMessage `grove:"allowances"`
	Metadata    json.RawMessage `grove:"metadata"`
	CreatedAt   time.Time       `grove:"created_at"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) (*snapshotModel, error) {
	balances, err := json.Marshal(s.Balances)
	if err != nil {
		return nil, err
	}
	allowances, err := json.Marshal(s.Allowances)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return nil, err
	}

	return &snapshotModel{
		ID:          s.ID.String(),
		TokenID:     s.TokenID.String(),
		Sequence:    int64(s.Sequence), //nolint:gosec // sequences stay far below 2^63
		TotalSupply: s.TotalSupply,
		Balances:    balances,
		Allowances:  allowances,
		Metadata:    meta,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*snapshot.Snapshot, error) {
	snapID, err := id.ParseSnapshotID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}

	snap := &snapshot.Snapshot{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          snapID,
		TokenID:     tokenID,
		Sequence:    uint64(m.Sequence), //nolint:gosec // written from a uint64
		TotalSupply: m.TotalSupply,
		Balances:    make(map[types.AccountID]types.Amount),
	}
	if len(m.Balances) > 0 {
		if err := json.Unmarshal(m.Balances, &snap.Balances); err != nil {
			return nil, fmt.Errorf("token/sqlite: snapshot %s balances: %w", m.ID, err)
		}
	}
	if len(m.Allowances) > 0 {
		if err := json.Unmarshal(m.Allowances, &snap.Allowances); err != nil {
			return nil, fmt.Errorf("token/sqlite: snapshot %s allowances: %w", m.ID, err)
		}
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &snap.Metadata) //nolint:errcheck // best-effort
	}
	return snap, nil
}

func accountPtr(a *types.AccountID) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func fromAccountPtr(s *string) *types.AccountID {
	if s == nil {
		return nil
	}
	a := types.AccountID(*s)
	return &a
}
