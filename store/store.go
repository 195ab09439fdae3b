// Package store persists content payloads and maintains the sketch of the
// locally known content identifiers.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/sql/content"
	"github.com/biadnet/go-biadnet/sql/kvstore"
)

const (
	tipKey    = "tip"
	paramsKey = "sketch-params"
)

// Schema is the database schema used by the store.
const Schema = content.Schema + kvstore.Schema

var (
	// ErrSketchMismatch is returned when the database was created with
	// different sketch parameters.
	ErrSketchMismatch = errors.New("store: sketch parameters mismatch")
	// ErrContentMismatch is returned when the payload doesn't hash to the
	// expected identifier.
	ErrContentMismatch = errors.New("store: content doesn't match its id")
)

// ContentID returns the identifier of a payload.
func ContentID(data []byte) iblt.ID {
	return iblt.ID(blake3.Sum256(data))
}

type config struct {
	cacheSize int
}

// Opt is an option for the store.
type Opt func(*Store)

// WithLogger specifies the logger for the store.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithCacheSize specifies the number of payloads kept in memory.
func WithCacheSize(size int) Opt {
	return func(s *Store) {
		s.cfg.cacheSize = size
	}
}

// WithClock specifies the clock used to timestamp received content.
func WithClock(clock clockwork.Clock) Opt {
	return func(s *Store) {
		s.clock = clock
	}
}

// Store holds content payloads along with the sketch of their identifiers.
// It is safe for concurrent use.
type Store struct {
	logger *zap.Logger
	clock  clockwork.Clock
	cfg    config
	db     *sql.Database
	params SketchParams
	cache  *lru.Cache[iblt.ID, []byte]

	mu     sync.RWMutex
	sketch *iblt.Table
	count  int
	tip    iblt.ID
	hasTip bool
}

// New creates a store on top of db, which must have been opened with Schema.
// The sketch is rebuilt from the stored identifiers.
func New(db *sql.Database, params SketchParams, opts ...Opt) (*Store, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	s := &Store{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		cfg:    config{cacheSize: 1024},
		db:     db,
		params: params,
	}
	for _, opt := range opts {
		opt(s)
	}
	var err error
	s.cache, err = lru.New[iblt.ID, []byte](s.cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	if err := s.checkParams(); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.logger.Info("store loaded",
		zap.Int("count", s.count),
		zap.Bool("has_tip", s.hasTip),
		zap.Stringer("tip", s.tip))
	return s, nil
}

// Open opens or creates the database at path and creates a store on top of it.
// The database is closed by Close.
func Open(path string, params SketchParams, opts ...Opt) (*Store, error) {
	db, err := sql.Open("file:"+path, sql.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	s, err := New(db, params, opts...)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return s, nil
}

func (s *Store) checkParams() error {
	var stored SketchParams
	err := kvstore.Get(s.db, paramsKey, &stored)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return kvstore.Put(s.db, paramsKey, &s.params)
	case err != nil:
		return err
	case stored != s.params:
		return fmt.Errorf("%w: stored %d buckets, %d hashes; configured %d buckets, %d hashes",
			ErrSketchMismatch, stored.Buckets, stored.K, s.params.Buckets, s.params.K)
	}
	return nil
}

func (s *Store) load() error {
	s.sketch = s.params.newTable()
	s.count = 0
	if err := content.IterateIDs(s.db, func(id iblt.ID) bool {
		s.sketch.Insert(id[:])
		s.count++
		return true
	}); err != nil {
		return err
	}
	switch err := kvstore.Get(s.db, tipKey, &s.tip); {
	case err == nil:
		s.hasTip = true
	case !errors.Is(err, sql.ErrNotFound):
		return err
	}
	return nil
}

// Params returns the sketch parameters.
func (s *Store) Params() SketchParams {
	return s.params
}

// Tip returns the identifier of the most recently stored payload.
func (s *Store) Tip() (iblt.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip, s.hasTip
}

// Sketch returns a copy of the sketch of all stored identifiers.
func (s *Store) Sketch() *iblt.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sketch.Clone()
}

// Snapshot returns the serialized sketch along with the number of stored
// payloads.
func (s *Store) Snapshot() *iblt.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sketch.Snapshot(uint32(s.count))
}

// Count returns the number of stored payloads.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Has returns true if the payload with the specified id is stored.
func (s *Store) Has(id iblt.ID) (bool, error) {
	if s.cache.Contains(id) {
		return true, nil
	}
	return content.Has(s.db, id)
}

// Get returns the payload with the specified id.
// It returns sql.ErrNotFound if there's no such payload.
func (s *Store) Get(id iblt.ID) ([]byte, error) {
	if data, ok := s.cache.Get(id); ok {
		return data, nil
	}
	data, err := content.Get(s.db, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, data)
	return data, nil
}

// IDs returns up to limit stored ids in the order of arrival, skipping the
// first offset ones.
func (s *Store) IDs(offset, limit int) ([]iblt.ID, error) {
	return content.ListIDs(s.db, offset, limit)
}

// Put stores the payload and adds its id to the sketch.
// Storing a payload which is already present is a no-op, apart from
// returning the id.
func (s *Store) Put(data []byte) (iblt.ID, error) {
	id := ContentID(data)
	return id, s.put(id, data)
}

// PutWithID is like Put, but it fails with ErrContentMismatch if the payload
// doesn't hash to id.
func (s *Store) PutWithID(id iblt.ID, data []byte) error {
	if ContentID(data) != id {
		return fmt.Errorf("%w: %s", ErrContentMismatch, id.ShortString())
	}
	return s.put(id, data)
}

func (s *Store) put(id iblt.ID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// content and tip are updated atomically, so that the sketch rebuilt
	// on load matches the tip
	err := s.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := content.Add(tx, id, data, s.clock.Now()); err != nil {
			return err
		}
		return kvstore.Put(tx, tipKey, &id)
	})
	switch {
	case errors.Is(err, sql.ErrObjectExists):
		return nil
	case err != nil:
		return fmt.Errorf("put %s: %w", id.ShortString(), err)
	}
	s.sketch.Insert(id[:])
	s.count++
	s.tip = id
	s.hasTip = true
	s.cache.Add(id, data)
	s.logger.Debug("stored content", zap.Stringer("id", id), zap.Int("size", len(data)))
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
