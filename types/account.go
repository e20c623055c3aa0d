package types

import "strings"

// AccountID identifies a token holder. It is opaque to the ledger: any
// stable identity format works (hex address, "0.0.1234", "acct_..." TypeID).
// Callers are expected to hand in an already authenticated identity.
type AccountID string

// ParseAccountID trims surrounding whitespace. The empty string is
// accepted and denotes the zero account.
func ParseAccountID(s string) AccountID {
	return AccountID(strings.TrimSpace(s))
}

// String returns the identifier as given.
func (a AccountID) String() string { return string(a) }

// IsZero reports whether the identifier is empty.
func (a AccountID) IsZero() bool { return a == "" }

// Ptr returns a pointer to a copy of a. Used for optional event parties.
func (a AccountID) Ptr() *AccountID { return &a }
