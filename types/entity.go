// Package types provides the value types shared by the token ledger and
// its stores: amounts, account identifiers and entity timestamps.
package types

import "time"

// Entity carries the timestamps of a persisted record. Snapshots embed it;
// stores round-trip both fields.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both fields with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}
