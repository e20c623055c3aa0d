package token

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/snapshot"
	"github.com/xraph/token/store"
	"github.com/xraph/token/types"
)

// Metadata describes the token: display name, ticker symbol and the number
// of decimals used when rendering amounts.
type Metadata = snapshot.Metadata

type allowanceKey struct {
	owner   types.AccountID
	spender types.AccountID
}

// Ledger is a fungible-token ledger. It owns balances, allowances and the
// total supply, and is safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	tokenID     id.TokenID
	meta        Metadata
	totalSupply types.Amount
	balances    map[types.AccountID]types.Amount
	allowances  map[allowanceKey]types.Amount
	seq         uint64
	strict      bool

	sinks   []event.Sink
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Background journal worker
	journal        chan *event.Event
	journalDropped uint64 // guarded by mu
	flushReq       chan chan error
	stopChan       chan struct{}
	wg             sync.WaitGroup
	lifecycle      sync.Mutex
	started        bool

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
	journalBufferSize    int
}

// New creates a ledger whose whole initial supply belongs to creator.
// A zero initial supply leaves the balance map empty.
func New(initialSupply types.Amount, creator types.AccountID, opts ...Option) *Ledger {
	l := newLedger(opts...)
	l.totalSupply = initialSupply
	if !initialSupply.IsZero() {
		l.balances[creator] = initialSupply
	}
	return l
}

func newLedger(opts ...Option) *Ledger {
	l := &Ledger{
		balances:             make(map[types.AccountID]types.Amount),
		allowances:           make(map[allowanceKey]types.Amount),
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
		journalBufferSize:    10000,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.tokenID.IsNil() {
		l.tokenID = id.NewTokenID()
	}
	if l.store != nil {
		l.journal = make(chan *event.Event, l.journalBufferSize)
		l.flushReq = make(chan chan error)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithSink adds an event sink. Sinks are called in registration order.
func WithSink(s event.Sink) Option {
	return func(l *Ledger) {
		l.sinks = append(l.sinks, s)
	}
}

// WithStore sets the store used by the journal worker and Checkpoint.
func WithStore(s store.Store) Option {
	return func(l *Ledger) {
		l.store = s
	}
}

// WithTokenID sets the token identity. A fresh "tok_" ID is generated
// otherwise.
func WithTokenID(tokenID id.TokenID) Option {
	return func(l *Ledger) {
		l.tokenID = tokenID
	}
}

// WithMetadata sets the token's name, symbol and display decimals.
func WithMetadata(name, symbol string, decimals uint8) Option {
	return func(l *Ledger) {
		l.meta = Metadata{Name: name, Symbol: symbol, Decimals: decimals}
	}
}

// WithStrictAllowances makes TransferFrom authorize against the allowance
// granted to the caller, Allowance(from, caller), and consume it on
// success. By default the allowance is looked up as Allowance(from, to)
// and left unchanged.
func WithStrictAllowances() Option {
	return func(l *Ledger) {
		l.strict = true
	}
}

// WithJournalConfig configures journal batching.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			l.journalFlushInterval = flushInterval
		}
	}
}

// WithJournalBufferSize sets how many events may wait for the journal worker.
func WithJournalBufferSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.journalBufferSize = n
		}
	}
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// TokenID returns the ledger's identity.
func (l *Ledger) TokenID() id.TokenID { return l.tokenID }

// Metadata returns the token metadata.
func (l *Ledger) Metadata() Metadata { return l.meta }

// StrictAllowances reports whether strict allowance mode is on.
func (l *Ledger) StrictAllowances() bool { return l.strict }

// Store returns the configured store, or nil.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// TotalSupply returns the number of units in existence.
func (l *Ledger) TotalSupply() types.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply
}

// BalanceOf returns the account's balance, zero if it holds nothing.
func (l *Ledger) BalanceOf(account types.AccountID) types.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Allowance returns how much spender may move out of owner's balance.
func (l *Ledger) Allowance(owner, spender types.AccountID) types.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[allowanceKey{owner, spender}]
}

// Sequence returns the sequence number of the last emitted event.
func (l *Ledger) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Display renders an amount in major units using the token's decimals,
// followed by the symbol when one is set.
func (l *Ledger) Display(amount types.Amount) string {
	s := amount.Format(l.meta.Decimals)
	if l.meta.Symbol != "" {
		s += " " + l.meta.Symbol
	}
	return s
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Transfer moves amount from caller to to. A self-transfer leaves the
// balance unchanged but still succeeds and emits.
func (l *Ledger) Transfer(caller, to types.AccountID, amount types.Amount) error {
	l.mu.Lock()
	if err := l.move(OpTransfer, caller, to, amount); err != nil {
		l.mu.Unlock()
		l.rejected(OpTransfer, caller, amount, err)
		return err
	}
	evt := l.emit(caller, event.NewTransfer(caller.Ptr(), to.Ptr(), amount))
	l.mu.Unlock()

	l.plugins.EmitEvent(context.Background(), evt)
	return nil
}

// Approve adds value to the allowance caller grants spender. The caller's
// current balance must cover value; nothing is reserved. The emitted
// Approval carries the increment.
func (l *Ledger) Approve(caller, spender types.AccountID, value types.Amount) error {
	l.mu.Lock()
	bal := l.balances[caller]
	if bal.LessThan(value) {
		l.mu.Unlock()
		err := insufficient(OpApprove, caller, value, bal)
		l.rejected(OpApprove, caller, value, err)
		return err
	}

	key := allowanceKey{caller, spender}
	next, ok := l.allowances[key].Add(value)
	if !ok {
		l.mu.Unlock()
		err := overflow(OpApprove, caller, value)
		l.rejected(OpApprove, caller, value, err)
		return err
	}
	setAmount(l.allowances, key, next)

	evt := l.emit(caller, event.NewApproval(caller, spender, value))
	l.mu.Unlock()

	l.plugins.EmitEvent(context.Background(), evt)
	return nil
}

// TransferFrom moves value from from to to on behalf of caller. The
// allowance is checked before the balance; either being short fails with
// ErrInsufficientBalance. See WithStrictAllowances for which allowance is
// consulted.
func (l *Ledger) TransferFrom(caller, from, to types.AccountID, value types.Amount) error {
	l.mu.Lock()
	key := allowanceKey{from, to}
	if l.strict {
		key = allowanceKey{from, caller}
	}

	allowed := l.allowances[key]
	if allowed.LessThan(value) {
		l.mu.Unlock()
		err := insufficient(OpTransferFrom, from, value, allowed)
		l.rejected(OpTransferFrom, caller, value, err)
		return err
	}

	if err := l.move(OpTransferFrom, from, to, value); err != nil {
		l.mu.Unlock()
		l.rejected(OpTransferFrom, caller, value, err)
		return err
	}

	if l.strict {
		remaining, _ := allowed.Sub(value)
		setAmount(l.allowances, key, remaining)
	}

	evt := event.NewTransfer(from.Ptr(), to.Ptr(), value)
	evt.Op = OpTransferFrom
	evt = l.emit(caller, evt)
	l.mu.Unlock()

	l.plugins.EmitEvent(context.Background(), evt)
	return nil
}

// Mint credits value to to and grows the total supply. It fails only with
// ErrOverflow when the supply would leave the Amount range.
func (l *Ledger) Mint(to types.AccountID, value types.Amount) error {
	l.mu.Lock()
	supply, ok := l.totalSupply.Add(value)
	if !ok {
		l.mu.Unlock()
		err := overflow(OpMint, to, value)
		l.rejected(OpMint, to, value, err)
		return err
	}
	bal, ok := l.balances[to].Add(value)
	if !ok {
		l.mu.Unlock()
		err := overflow(OpMint, to, value)
		l.rejected(OpMint, to, value, err)
		return err
	}

	l.totalSupply = supply
	setAmount(l.balances, to, bal)

	evt := l.emit("", event.NewTransfer(nil, to.Ptr(), value))
	l.mu.Unlock()

	l.plugins.EmitEvent(context.Background(), evt)
	return nil
}

// Burn destroys value from from's balance and shrinks the total supply.
func (l *Ledger) Burn(from types.AccountID, value types.Amount) error {
	l.mu.Lock()
	bal := l.balances[from]
	remaining, ok := bal.Sub(value)
	if !ok {
		l.mu.Unlock()
		err := insufficient(OpBurn, from, value, bal)
		l.rejected(OpBurn, from, value, err)
		return err
	}
	supply, ok := l.totalSupply.Sub(value)
	if !ok {
		// Only reachable if the supply invariant is already broken.
		l.mu.Unlock()
		err := &OperationError{Op: OpBurn, Account: from, Requested: value, Err: ErrSupplyMismatch}
		l.rejected(OpBurn, from, value, err)
		return err
	}

	l.totalSupply = supply
	setAmount(l.balances, from, remaining)

	evt := l.emit("", event.NewTransfer(from.Ptr(), nil, value))
	l.mu.Unlock()

	l.plugins.EmitEvent(context.Background(), evt)
	return nil
}

// move debits from and credits to. Both new balances are computed before
// either is written, so a failure leaves state untouched. Must hold l.mu.
func (l *Ledger) move(op string, from, to types.AccountID, value types.Amount) error {
	fromBal := l.balances[from]
	debited, ok := fromBal.Sub(value)
	if !ok {
		return insufficient(op, from, value, fromBal)
	}
	if from == to {
		return nil
	}

	credited, ok := l.balances[to].Add(value)
	if !ok {
		return overflow(op, to, value)
	}

	setAmount(l.balances, from, debited)
	setAmount(l.balances, to, credited)
	return nil
}

// emit stamps evt with the ledger identity and next sequence, hands it to
// the sinks and the journal, and returns it. Must hold l.mu.
func (l *Ledger) emit(caller types.AccountID, evt *event.Event) *event.Event {
	l.seq++
	evt.TokenID = l.tokenID
	evt.Sequence = l.seq
	evt.Caller = caller

	for _, s := range l.sinks {
		if err := s.Emit(evt); err != nil {
			l.logger.Warn("event sink failed",
				"token_id", l.tokenID.String(),
				"sequence", evt.Sequence,
				"error", err,
			)
		}
	}

	if l.journal != nil {
		select {
		case l.journal <- evt:
		default:
			l.journalDropped++
			l.logger.Warn("journal buffer full, event not persisted",
				"token_id", l.tokenID.String(),
				"sequence", evt.Sequence,
				"error", ErrJournalBufferFull,
			)
		}
	}

	return evt
}

func (l *Ledger) rejected(op string, account types.AccountID, value types.Amount, err error) {
	l.logger.Debug("operation rejected",
		"op", op,
		"account", account.String(),
		"value", value.String(),
		"error", err,
	)
	l.plugins.EmitRejected(context.Background(), op, account, value, err)
}

func insufficient(op string, account types.AccountID, requested, available types.Amount) error {
	return &OperationError{
		Op:        op,
		Account:   account,
		Requested: requested,
		Available: available,
		Err:       ErrInsufficientBalance,
	}
}

func overflow(op string, account types.AccountID, requested types.Amount) error {
	return &OperationError{Op: op, Account: account, Requested: requested, Err: ErrOverflow}
}

// setAmount stores v under k, deleting the entry when v is zero so maps
// only hold non-default values.
func setAmount[K comparable](m map[K]types.Amount, k K, v types.Amount) {
	if v.IsZero() {
		delete(m, k)
		return
	}
	m[k] = v
}
