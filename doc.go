// Package token provides an embeddable fungible-token ledger for Go
// applications.
//
// A Ledger tracks how many units of a divisible token each account holds,
// and lets accounts move units directly or through delegated allowances.
// It is a library, not a service: the host supplies caller identities,
// which the ledger trusts as already authenticated. It provides:
//
//   - Balance and allowance bookkeeping with checked 256-bit arithmetic
//   - Transfer, Approve, TransferFrom, Mint and Burn with all-or-nothing semantics
//   - An ordered event stream (Transfer and Approval) delivered to pluggable sinks
//   - Optional journaling of events and snapshots to PostgreSQL, SQLite or MongoDB
//   - Kafka publishing via the event/kafka sink
//   - Lifecycle plugins for auditing and Prometheus metrics
//
// # Quick Start
//
//	l := token.New(token.NewAmount(1000), "alice",
//	    token.WithMetadata("Example", "EXM", 2),
//	)
//
//	if err := l.Transfer("alice", "bob", token.NewAmount(10)); err != nil {
//	    if token.IsInsufficient(err) {
//	        // retry with a smaller amount
//	    }
//	}
//
//	l.BalanceOf("bob")   // 10
//	l.TotalSupply()      // 1000
//
// # Invariant
//
// At every point TotalSupply equals the sum of all balances. Transfer and
// TransferFrom conserve it, Mint raises it by exactly the minted value and
// Burn lowers it by exactly the burned value. A rejected call changes
// nothing. Verify recomputes the sum on demand.
//
// # Allowances
//
// Approve is additive and requires the owner's current balance to cover
// the approved value; it does not reserve funds. By default TransferFrom
// authorizes against Allowance(from, to) and does not consume it. Pass
// WithStrictAllowances to authorize against Allowance(from, caller) and
// decrement it on success.
//
// # Events
//
// Every committed mutation produces one event with a monotonically
// increasing sequence number. Sinks run synchronously under the ledger
// lock, so they observe events in commit order; a failing sink is logged
// and never undoes the mutation. Mint is reported as a Transfer with no
// sender and Burn as a Transfer with no recipient.
//
// # Persistence
//
// With WithStore, Start launches a worker that batches events into the
// store's journal. Checkpoint saves a snapshot and Load rebuilds a ledger
// from the latest snapshot plus the events journaled after it.
package token
