package token

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/token/event"
)

// Start migrates the store, initializes plugins and starts the journal
// worker that persists committed events in batches. Without a store only
// plugins are initialized. It fails with ErrCorruptSnapshot when the store
// already holds events past the ledger's sequence; reopen such a ledger
// with Load or Open.
func (l *Ledger) Start(ctx context.Context) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.started {
		return ErrAlreadyStarted
	}

	if l.store != nil {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
		if err := l.checkJournalHead(ctx, l.journalBase()); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	if l.store != nil {
		if err := l.ensureGenesis(ctx); err != nil {
			return err
		}
	}

	l.stopChan = make(chan struct{})
	if l.journal != nil {
		l.wg.Add(1)
		go l.journalWorker(context.WithoutCancel(ctx))
	}
	l.started = true

	l.logger.Info("token ledger started",
		"token_id", l.tokenID.String(),
		"journal", l.journal != nil,
		"batch_size", l.journalBatchSize,
		"flush_interval", l.journalFlushInterval,
		"strict_allowances", l.strict,
	)

	return nil
}

// Stop flushes pending journal events, shuts down plugins and closes the
// store.
func (l *Ledger) Stop() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if !l.started {
		return ErrNotStarted
	}
	l.started = false

	close(l.stopChan)
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	l.logger.Info("token ledger stopped", "token_id", l.tokenID.String())

	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

// Flush writes every buffered journal event to the store before
// returning. It is safe to call with or without a running worker; when the
// ledger is not started the genesis snapshot is saved first, as Start
// would. Events dropped because the journal buffer was full are reported
// with ErrJournalBufferFull.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.journal == nil {
		return ErrNoStore
	}

	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.started {
		done := make(chan error, 1)
		select {
		case l.flushReq <- done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := <-done; err != nil {
			return err
		}
		return l.takeDropped()
	}

	if err := l.checkJournalHead(ctx, l.journalBase()); err != nil {
		return err
	}
	batch := l.drain(nil)
	if err := l.ensureGenesis(ctx); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := l.flushJournalBatch(ctx, batch); err != nil {
			return err
		}
	}
	return l.takeDropped()
}

// checkJournalHead fails when the store holds events for this token past
// seq, which the ledger's next events would collide with.
func (l *Ledger) checkJournalHead(ctx context.Context, seq uint64) error {
	last, err := l.store.LastSequence(ctx, l.tokenID)
	if err != nil {
		return fmt.Errorf("token: journal head: %w", err)
	}
	if last > seq {
		return fmt.Errorf("%w: store holds sequence %d, ledger is at %d", ErrCorruptSnapshot, last, seq)
	}
	return nil
}

// journalBase returns the sequence the stored journal should end at: the
// ledger's sequence less the events still buffered or dropped.
func (l *Ledger) journalBase() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := uint64(len(l.journal)) + l.journalDropped
	if pending > l.seq {
		return 0
	}
	return l.seq - pending
}

// takeDropped reports and resets the count of events the journal buffer
// had no room for.
func (l *Ledger) takeDropped() error {
	l.mu.Lock()
	n := l.journalDropped
	l.journalDropped = 0
	l.mu.Unlock()

	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d events not persisted", ErrJournalBufferFull, n)
}

// ensureGenesis saves a first snapshot when the store holds none for this
// token, so Load can rebuild state that predates the journal.
func (l *Ledger) ensureGenesis(ctx context.Context) error {
	_, err := l.store.LatestSnapshot(ctx, l.tokenID)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return err
	}
	_, err = l.Checkpoint(ctx)
	return err
}

// journalWorker flushes committed events to the store.
func (l *Ledger) journalWorker(ctx context.Context) {
	defer l.wg.Done()

	batch := make([]*event.Event, 0, l.journalBatchSize)
	ticker := time.NewTicker(l.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			// Final flush
			batch = l.drain(batch)
			if len(batch) > 0 {
				_ = l.flushJournalBatch(ctx, batch) //nolint:errcheck // logged in flushJournalBatch
			}
			return

		case done := <-l.flushReq:
			batch = l.drain(batch)
			var err error
			if len(batch) > 0 {
				err = l.flushJournalBatch(ctx, batch)
				batch = make([]*event.Event, 0, l.journalBatchSize)
			}
			done <- err

		case evt := <-l.journal:
			batch = append(batch, evt)
			if len(batch) >= l.journalBatchSize {
				_ = l.flushJournalBatch(ctx, batch) //nolint:errcheck // logged in flushJournalBatch
				batch = make([]*event.Event, 0, l.journalBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				_ = l.flushJournalBatch(ctx, batch) //nolint:errcheck // logged in flushJournalBatch
				batch = make([]*event.Event, 0, l.journalBatchSize)
			}
		}
	}
}

// drain moves everything currently buffered into batch without blocking.
func (l *Ledger) drain(batch []*event.Event) []*event.Event {
	for {
		select {
		case evt := <-l.journal:
			batch = append(batch, evt)
		default:
			return batch
		}
	}
}

func (l *Ledger) flushJournalBatch(ctx context.Context, batch []*event.Event) error {
	start := time.Now()

	if err := l.store.AppendEvents(ctx, batch); err != nil {
		l.logger.Error("failed to flush journal batch",
			"token_id", l.tokenID.String(),
			"error", err,
			"batch_size", len(batch),
		)
		return err
	}

	elapsed := time.Since(start)
	l.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	l.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}
