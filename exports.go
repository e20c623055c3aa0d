package token

import "github.com/xraph/token/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// AccountID is re-exported from types package.
type AccountID = types.AccountID

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	NewAmount       = types.NewAmount
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
	AmountFromBig   = types.AmountFromBig
	MaxAmount       = types.MaxAmount
	Zero            = types.Zero
	Sum             = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
