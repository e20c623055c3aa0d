package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// Amounts are stored as decimal strings: BSON has no 256-bit integer.

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:token_events"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	TokenID     string    `grove:"token_id"     bson:"token_id"`
	Sequence    int64     `grove:"sequence"     bson:"sequence"`
	Kind        string    `grove:"kind"         bson:"kind"`
	Op          string    `grove:"op"           bson:"op"`
	Caller      string    `grove:"caller"       bson:"caller,omitempty"`
	FromAccount *string   `grove:"from_account" bson:"from_account,omitempty"`
	ToAccount   *string   `grove:"to_account"   bson:"to_account,omitempty"`
	Owner       *string   `grove:"owner"        bson:"owner,omitempty"`
	Spender     *string   `grove:"spender"      bson:"spender,omitempty"`
	Value       string    `grove:"value"        bson:"value"`
	Timestamp   time.Time `grove:"timestamp"    bson:"timestamp"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
}

func toEventModel(e *event.Event) *eventModel {
	m := &eventModel{
		ID:        e.ID.String(),
		TokenID:   e.TokenID.String(),
		Sequence:  int64(e.Sequence), //nolint:gosec // sequences stay far below 2^63
		Kind:      string(e.Kind),
		Op:        e.Op,
		Caller:    e.Caller.String(),
		Value:     e.Value().String(),
		Timestamp: e.Timestamp,
		CreatedAt: time.Now().UTC(),
	}
	if t := e.Transfer; t != nil {
		if t.From != nil {
			from := t.From.String()
			m.FromAccount = &from
		}
		if t.To != nil {
			to := t.To.String()
			m.ToAccount = &to
		}
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
	value, err := types.ParseAmount(m.Value)
	if err != nil {
		return nil, fmt.Errorf("token/mongo: event %s value: %w", m.ID, err)
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
		t := &event.Transfer{Value: value}
		if m.FromAccount != nil {
			t.From = types.AccountID(*m.FromAccount).Ptr()
		}
		if m.ToAccount != nil {
			t.To = types.AccountID(*m.ToAccount).Ptr()
		}
		e.Transfer = t
	case event.KindApproval:
		if m.Owner == nil || m.Spender == nil {
			return nil, fmt.Errorf("token/mongo: approval %s missing parties", m.ID)
		}
		e.Approval = &event.Approval{
			Owner:   types.AccountID(*m.Owner),
			Spender: types.AccountID(*m.Spender),
			Value:   value,
		}
	default:
		return nil, fmt.Errorf("token/mongo: event %s has unknown kind %q", m.ID, m.Kind)
	}
	return e, nil
}

// ==================== Snapshot models ====================

type allowanceModel struct {
	Owner   string `bson:"owner"`
	Spender string `bson:"spender"`
	Value   string `bson:"value"`
}

type snapshotModel struct {
	grove.BaseModel `grove:"table:token_snapshots"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	TokenID     string            `grove:"token_id"     bson:"token_id"`
	Sequence    int64             `grove:"sequence"     bson:"sequence"`
	TotalSupply string            `grove:"total_supply" bson:"total_supply"`
	Balances    map[string]string `grove:"balances"     bson:"balances"`
	Allowances  []allowanceModel  `grove:"allowances"   bson:"allowances"`
	Name        string            `grove:"name"         bson:"name,omitempty"`
	Symbol      string            `grove:"symbol"       bson:"symbol,omitempty"`
	Decimals    int32             `grove:"decimals"     bson:"decimals"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) *snapshotModel {
	m := &snapshotModel{
		ID:          s.ID.String(),
		TokenID:     s.TokenID.String(),
		Sequence:    int64(s.Sequence), //nolint:gosec // sequences stay far below 2^63
		TotalSupply: s.TotalSupply.String(),
		Balances:    make(map[string]string, len(s.Balances)),
		Allowances:  make([]allowanceModel, len(s.Allowances)),
		Name:        s.Metadata.Name,
		Symbol:      s.Metadata.Symbol,
		Decimals:    int32(s.Metadata.Decimals),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for account, bal := range s.Balances {
		m.Balances[account.String()] = bal.String()
	}
	for i, a := range s.Allowances {
		m.Allowances[i] = allowanceModel{
			Owner:   a.Owner.String(),
			Spender: a.Spender.String(),
			Value:   a.Value.String(),
		}
	}
	return m
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
	supply, err := types.ParseAmount(m.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("token/mongo: snapshot %s supply: %w", m.ID, err)
	}

	snap := &snapshot.Snapshot{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          snapID,
		TokenID:     tokenID,
		Sequence:    uint64(m.Sequence), //nolint:gosec // written from a uint64
		TotalSupply: supply,
		Balances:    make(map[types.AccountID]types.Amount, len(m.Balances)),
		Allowances:  make([]snapshot.Allowance, len(m.Allowances)),
		Metadata: snapshot.Metadata{
			Name:     m.Name,
			Symbol:   m.Symbol,
			Decimals: uint8(m.Decimals), //nolint:gosec // written from a uint8
		},
	}
	for account, raw := range m.Balances {
		bal, err := types.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("token/mongo: snapshot %s balance of %q: %w", m.ID, account, err)
		}
		snap.Balances[types.AccountID(account)] = bal
	}
	for i, a := range m.Allowances {
		value, err := types.ParseAmount(a.Value)
		if err != nil {
			return nil, fmt.Errorf("token/mongo: snapshot %s allowance: %w", m.ID, err)
		}
		snap.Allowances[i] = snapshot.Allowance{
			Owner:   types.AccountID(a.Owner),
			Spender: types.AccountID(a.Spender),
			Value:   value,
		}
	}
	return snap, nil
}
