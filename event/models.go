// Package event defines the domain events a token ledger emits and the
// sinks and stores that consume them.
package event

import (
	"time"

	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// Kind distinguishes transfer events from approval events.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindApproval Kind = "approval"
)

// Operation names carried in Event.Op.
const (
	OpTransfer     = "transfer"
	OpTransferFrom = "transfer_from"
	OpApprove      = "approve"
	OpMint         = "mint"
	OpBurn         = "burn"
)

// Transfer records a movement of value. From is nil for a mint and To is
// nil for a burn.
type Transfer struct {
	From  *types.AccountID `json:"from,omitempty"`
	To    *types.AccountID `json:"to,omitempty"`
	Value types.Amount     `json:"value"`
}

// IsMint reports whether the transfer created new supply.
func (t *Transfer) IsMint() bool { return t.From == nil }

// IsBurn reports whether the transfer destroyed supply.
func (t *Transfer) IsBurn() bool { return t.To == nil }

// Approval records an allowance increase granted by Owner to Spender.
// Value is the increment, not the resulting allowance.
type Approval struct {
	Owner   types.AccountID `json:"owner"`
	Spender types.AccountID `json:"spender"`
	Value   types.Amount    `json:"value"`
}

// Event is one committed ledger mutation. Exactly one of Transfer or
// Approval is set, matching Kind.
type Event struct {
	ID        id.EventID      `json:"id"`
	TokenID   id.TokenID      `json:"token_id"`
	Sequence  uint64          `json:"sequence"`
	Kind      Kind            `json:"kind"`
	Op        string          `json:"op"`
	Caller    types.AccountID `json:"caller,omitempty"`
	Transfer  *Transfer       `json:"transfer,omitempty"`
	Approval  *Approval       `json:"approval,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTransfer builds a transfer event. Op is derived from the parties and
// may be overridden for delegated transfers. Sequence and TokenID are
// assigned by the ledger.
func NewTransfer(from, to *types.AccountID, value types.Amount) *Event {
	op := OpTransfer
	switch {
	case from == nil:
		op = OpMint
	case to == nil:
		op = OpBurn
	}
	return &Event{
		ID:        id.NewEventID(),
		Kind:      KindTransfer,
		Op:        op,
		Transfer:  &Transfer{From: from, To: to, Value: value},
		Timestamp: time.Now().UTC(),
	}
}

// NewApproval builds an approval event.
func NewApproval(owner, spender types.AccountID, value types.Amount) *Event {
	return &Event{
		ID:        id.NewEventID(),
		Kind:      KindApproval,
		Op:        OpApprove,
		Approval:  &Approval{Owner: owner, Spender: spender, Value: value},
		Timestamp: time.Now().UTC(),
	}
}

// Value returns the amount carried by the event.
func (e *Event) Value() types.Amount {
	switch {
	case e.Transfer != nil:
		return e.Transfer.Value
	case e.Approval != nil:
		return e.Approval.Value
	default:
		return types.Amount{}
	}
}

// Involves reports whether the account is a party to the event.
func (e *Event) Involves(account types.AccountID) bool {
	if e.Transfer != nil {
		if e.Transfer.From != nil && *e.Transfer.From == account {
			return true
		}
		if e.Transfer.To != nil && *e.Transfer.To == account {
			return true
		}
	}
	if e.Approval != nil {
		return e.Approval.Owner == account || e.Approval.Spender == account
	}
	return false
}

// Clone returns a deep copy.
func (e *Event) Clone() *Event {
	c := *e
	if e.Transfer != nil {
		t := *e.Transfer
		if t.From != nil {
			t.From = t.From.Ptr()
		}
		if t.To != nil {
			t.To = t.To.Ptr()
		}
		c.Transfer = &t
	}
	if e.Approval != nil {
		a := *e.Approval
		c.Approval = &a
	}
	return &c
}
