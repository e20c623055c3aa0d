package audithook

// Action constants for audit events.
const (
	// Mutation actions
	ActionTransfer     = "token.transfer"
	ActionTransferFrom = "token.transfer_from"
	ActionApproval     = "token.approval"
	ActionMint         = "token.mint"
	ActionBurn         = "token.burn"
	ActionRejected     = "token.rejected"

	// Persistence actions
	ActionCheckpoint     = "token.checkpoint"
	ActionJournalFlushed = "journal.flushed"
)

// Resource constants for audit events.
const (
	ResourceToken    = "token"
	ResourceAccount  = "account"
	ResourceSnapshot = "snapshot"
	ResourceJournal  = "journal"
)

// Category constants for audit events.
const (
	CategoryTransfer    = "transfer"
	CategoryAllowance   = "allowance"
	CategorySupply      = "supply"
	CategoryPersistence = "persistence"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
