package token

import (
	"errors"
	"fmt"

	"github.com/xraph/token/event"
	"github.com/xraph/token/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Ledger errors
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrOverflow            = errors.New("token: amount overflow")
	ErrCorruptSnapshot     = errors.New("token: corrupt snapshot")
	ErrSupplyMismatch      = errors.New("token: total supply does not match balances")

	// General errors
	ErrAlreadyExists = errors.New("token: already exists")
	ErrInvalidInput  = errors.New("token: invalid input")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("token: already started")
	ErrNotStarted     = errors.New("token: not started")
	ErrNoStore        = errors.New("token: no store configured")

	// Store errors
	ErrSnapshotNotFound = errors.New("token: snapshot not found")
	ErrStoreClosed      = errors.New("token: store is closed")
	ErrMigrationFailed  = errors.New("token: migration failed")

	// Journal errors
	ErrJournalBufferFull = errors.New("token: journal buffer full")
)

// Operation names reported in OperationError.
const (
	OpTransfer     = event.OpTransfer
	OpApprove      = event.OpApprove
	OpTransferFrom = event.OpTransferFrom
	OpMint         = event.OpMint
	OpBurn         = event.OpBurn
)

// OperationError describes a rejected ledger mutation. It unwraps to the
// sentinel (ErrInsufficientBalance or ErrOverflow) so callers can match
// with errors.Is.
type OperationError struct {
	Op        string
	Account   types.AccountID
	Requested types.Amount
	Available types.Amount
	Err       error
}

func (e *OperationError) Error() string {
	if errors.Is(e.Err, ErrInsufficientBalance) {
		return fmt.Sprintf("%s %s: %v: requested %s, available %s",
			e.Op, e.Account, e.Err, e.Requested, e.Available)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Account, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("token: validation failed for %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "token: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("token: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrorOrNil returns e when it holds errors, otherwise nil.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Unwrap exposes the wrapped errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// IsInsufficient returns true if the operation was rejected for lack of
// balance or allowance.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

// IsIntegrityError returns true if the error signals state that violates
// the supply invariant or a journal that can no longer be replayed.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrCorruptSnapshot) ||
		errors.Is(err, ErrSupplyMismatch) ||
		errors.Is(err, ErrJournalBufferFull)
}
