// Package audithook bridges token ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnTransfer       = (*Extension)(nil)
	_ plugin.OnApproval       = (*Extension)(nil)
	_ plugin.OnMint           = (*Extension)(nil)
	_ plugin.OnBurn           = (*Extension)(nil)
	_ plugin.OnRejected       = (*Extension)(nil)
	_ plugin.OnCheckpoint     = (*Extension)(nil)
	_ plugin.OnJournalFlushed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges token ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Mutation hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, evt *event.Event) error {
	action := ActionTransfer
	if evt.Op == event.OpTransferFrom {
		action = ActionTransferFrom
	}
	t := evt.Transfer
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceToken, evt.TokenID.String(), CategoryTransfer, nil,
		"sequence", evt.Sequence,
		"caller", evt.Caller.String(),
		"from", t.From.String(),
		"to", t.To.String(),
		"value", t.Value.String(),
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, evt *event.Event) error {
	a := evt.Approval
	return e.record(ctx, ActionApproval, SeverityInfo, OutcomeSuccess,
		ResourceToken, evt.TokenID.String(), CategoryAllowance, nil,
		"sequence", evt.Sequence,
		"owner", a.Owner.String(),
		"spender", a.Spender.String(),
		"value", a.Value.String(),
	)
}

// OnMint implements plugin.OnMint.
func (e *Extension) OnMint(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionMint, SeverityWarning, OutcomeSuccess,
		ResourceToken, evt.TokenID.String(), CategorySupply, nil,
		"sequence", evt.Sequence,
		"to", evt.Transfer.To.String(),
		"value", evt.Transfer.Value.String(),
	)
}

// OnBurn implements plugin.OnBurn.
func (e *Extension) OnBurn(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionBurn, SeverityWarning, OutcomeSuccess,
		ResourceToken, evt.TokenID.String(), CategorySupply, nil,
		"sequence", evt.Sequence,
		"from", evt.Transfer.From.String(),
		"value", evt.Transfer.Value.String(),
	)
}

// OnRejected implements plugin.OnRejected. Overflows are critical; a
// short balance or allowance is an ordinary refusal.
func (e *Extension) OnRejected(ctx context.Context, op string, account types.AccountID, value types.Amount, err error) error {
	severity := SeverityWarning
	if errors.Is(err, token.ErrOverflow) || errors.Is(err, token.ErrSupplyMismatch) {
		severity = SeverityCritical
	}
	return e.record(ctx, ActionRejected, severity, OutcomeFailure,
		ResourceAccount, account.String(), categoryOf(op), err,
		"op", op,
		"value", value.String(),
	)
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnCheckpoint implements plugin.OnCheckpoint.
func (e *Extension) OnCheckpoint(ctx context.Context, snap *snapshot.Snapshot) error {
	return e.record(ctx, ActionCheckpoint, SeverityInfo, OutcomeSuccess,
		ResourceSnapshot, snap.ID.String(), CategoryPersistence, nil,
		"token_id", snap.TokenID.String(),
		"sequence", snap.Sequence,
		"total_supply", snap.TotalSupply.String(),
		"holders", len(snap.Balances),
	)
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (e *Extension) OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionJournalFlushed, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryPersistence, nil,
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func categoryOf(op string) string {
	switch op {
	case event.OpApprove:
		return CategoryAllowance
	case event.OpMint, event.OpBurn:
		return CategorySupply
	default:
		return CategoryTransfer
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
