// Package kafka publishes ledger events to a Kafka topic.
//
// The sink never blocks the ledger: Emit copies the event into a bounded
// buffer and a background worker writes batches. Messages are keyed by
// token ID so all events of one token land on one partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/token/event"
)

// ErrBufferFull is returned by Emit when the worker cannot keep up.
var ErrBufferFull = errors.New("kafka: event buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("kafka: sink closed")

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink is an event.Sink backed by Kafka.
type Sink struct {
	writer MessageWriter
	logger *slog.Logger

	buffer   chan *event.Event
	stopChan chan struct{}
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once
	closed   atomic.Bool

	published atomic.Uint64
	dropped   atomic.Uint64

	bufferSize    int
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration
}

var _ event.Sink = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// WithBatch sets the batch size and the maximum time an event waits.
func WithBatch(size int, interval time.Duration) Option {
	return func(s *Sink) {
		if size > 0 {
			s.batchSize = size
		}
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithBufferSize sets how many events may be pending.
func WithBufferSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithWriteTimeout bounds each batch write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewSink creates a sink writing to topic on the given brokers.
func NewSink(brokers []string, topic string, opts ...Option) *Sink {
	return NewSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, opts...)
}

// NewSinkWithWriter creates a sink over an existing writer.
func NewSinkWithWriter(w MessageWriter, opts ...Option) *Sink {
	s := &Sink{
		writer:        w,
		logger:        slog.Default(),
		stopChan:      make(chan struct{}),
		bufferSize:    10000,
		batchSize:     100,
		flushInterval: time.Second,
		writeTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buffer = make(chan *event.Event, s.bufferSize)
	return s
}

// Emit enqueues a copy of e. It never blocks.
func (s *Sink) Emit(e *event.Event) error {
	if s.closed.Load() {
		return ErrClosed
	}

	select {
	case s.buffer <- e.Clone():
		return nil
	default:
		s.dropped.Add(1)
		return ErrBufferFull
	}
}

// Start launches the publishing worker. Calling it more than once has no
// effect.
func (s *Sink) Start(ctx context.Context) {
	s.start.Do(func() {
		s.wg.Add(1)
		go s.worker(context.WithoutCancel(ctx))
	})
}

// Close flushes pending events, stops the worker and closes the writer.
func (s *Sink) Close() error {
	var err error
	s.stop.Do(func() {
		s.closed.Store(true)
		close(s.stopChan)
		s.wg.Wait()

		// Worker never started: publish what is buffered.
		if batch := s.drain(nil); len(batch) > 0 {
			_ = s.publish(context.Background(), batch) //nolint:errcheck // logged in publish
		}
		err = s.writer.Close()
	})
	return err
}

// Published returns how many events were written.
func (s *Sink) Published() uint64 { return s.published.Load() }

// Dropped returns how many events were rejected because the buffer was full.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

func (s *Sink) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]*event.Event, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			if batch = s.drain(batch); len(batch) > 0 {
				_ = s.publish(ctx, batch) //nolint:errcheck // logged in publish
			}
			return

		case e := <-s.buffer:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				_ = s.publish(ctx, batch) //nolint:errcheck // logged in publish
				batch = make([]*event.Event, 0, s.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				_ = s.publish(ctx, batch) //nolint:errcheck // logged in publish
				batch = make([]*event.Event, 0, s.batchSize)
			}
		}
	}
}

func (s *Sink) drain(batch []*event.Event) []*event.Event {
	for {
		select {
		case e := <-s.buffer:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

func (s *Sink) publish(ctx context.Context, batch []*event.Event) error {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, e := range batch {
		msg, err := Encode(e)
		if err != nil {
			s.logger.Error("failed to encode event", "event_id", e.ID.String(), "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.logger.Error("failed to publish events",
			"error", err,
			"batch_size", len(msgs),
		)
		return err
	}

	s.published.Add(uint64(len(msgs)))
	s.logger.Debug("published events", "batch_size", len(msgs))
	return nil
}

// Encode converts an event to a Kafka message keyed by token ID.
func Encode(e *event.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode event %s: %w", e.ID, err)
	}

	return kafka.Message{
		Key:   []byte(e.TokenID.String()),
		Value: data,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
			{Key: "op", Value: []byte(e.Op)},
			{Key: "sequence", Value: []byte(strconv.FormatUint(e.Sequence, 10))},
		},
	}, nil
}

// Decode parses a message produced by Encode.
func Decode(msg kafka.Message) (*event.Event, error) {
	var e event.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return nil, fmt.Errorf("kafka: decode event: %w", err)
	}
	return &e, nil
}
