package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/token"
	"github.com/xraph/token/event"
	"github.com/xraph/token/id"
	"github.com/xraph/token/snapshot"
	tokenstore "github.com/xraph/token/store"
)

// Collection name constants.
const (
	colEvents    = "token_events"
	colSnapshots = "token_snapshots"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the token collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: token/mongo: %s indexes: %w", token.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Event Store ====================

func (s *Store) AppendEvents(ctx context.Context, events []*event.Event) error {
	for _, e := range events {
		_, err := s.mdb.NewInsert(toEventModel(e)).Exec(ctx)
		if err != nil {
			// Already journaled
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("token/mongo: append event: %w", err)
		}
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{
		"token_id": tokenID.String(),
		"sequence": bson.M{"$gt": int64(opts.AfterSequence)}, //nolint:gosec // sequences stay far below 2^63
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Account != "" {
		account := opts.Account.String()
		filter["$or"] = bson.A{
			bson.M{"from_account": account},
			bson.M{"to_account": account},
			bson.M{"owner": account},
			bson.M{"spender": account},
		}
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		ts := bson.M{}
		if !opts.Start.IsZero() {
			ts["$gte"] = opts.Start
		}
		if !opts.End.IsZero() {
			ts["$lt"] = opts.End
		}
		filter["timestamp"] = ts
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "sequence", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("token/mongo: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	var m eventModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "sequence", Value: -1}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("token/mongo: last sequence: %w", err)
	}
	return uint64(m.Sequence), nil //nolint:gosec // written from a uint64
}

func (s *Store) PurgeEvents(ctx context.Context, tokenID id.TokenID, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*eventModel)(nil)).
		Filter(bson.M{
			"token_id":  tokenID.String(),
			"timestamp": bson.M{"$lt": before},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("token/mongo: purge events: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Snapshot Store ====================

func (s *Store) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	_, err := s.mdb.NewInsert(toSnapshotModel(snap)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return token.ErrAlreadyExists
		}
		return fmt.Errorf("token/mongo: save snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, snapID id.SnapshotID) (*snapshot.Snapshot, error) {
	var m snapshotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": snapID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, token.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("token/mongo: get snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

func (s *Store) LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*snapshot.Snapshot, error) {
	var m snapshotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "sequence", Value: -1}, {Key: "_id", Value: -1}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, token.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("token/mongo: latest snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

func (s *Store) ListSnapshots(ctx context.Context, tokenID id.TokenID, opts snapshot.ListOpts) ([]*snapshot.Snapshot, error) {
	var models []snapshotModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "sequence", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("token/mongo: list snapshots: %w", err)
	}

	result := make([]*snapshot.Snapshot, len(models))
	for i := range models {
		snap, err := fromSnapshotModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = snap
	}
	return result, nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, snapID id.SnapshotID) error {
	res, err := s.mdb.NewDelete((*snapshotModel)(nil)).
		Filter(bson.M{"_id": snapID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("token/mongo: delete snapshot: %w", err)
	}
	if res.DeletedCount() == 0 {
		return token.ErrSnapshotNotFound
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the token collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEvents: {
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "from_account", Value: 1}}},
			{Keys: bson.D{{Key: "to_account", Value: 1}}},
		},
		colSnapshots: {
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "sequence", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
}
