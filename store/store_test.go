package store_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/store"
)

var testParams = store.ParamsForNetwork("test", 100, 3)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db := sql.InMemory(sql.WithSchema(store.Schema))
	s, err := store.New(db, testParams, store.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestPutGet(t *testing.T) {
	s := newStore(t)
	_, ok := s.Tip()
	require.False(t, ok)
	require.Equal(t, 0, s.Count())
	require.True(t, s.Sketch().Empty())

	data := []byte("hello")
	id, err := s.Put(data)
	require.NoError(t, err)
	require.Equal(t, store.ContentID(data), id)

	tip, ok := s.Tip()
	require.True(t, ok)
	require.Equal(t, id, tip)
	require.Equal(t, 1, s.Count())

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, data, got)
	has, err := s.Has(id)
	require.NoError(t, err)
	require.True(t, has)

	ids, err := s.Sketch().Iterate(true).Collect()
	require.NoError(t, err)
	require.Equal(t, []iblt.ID{id}, ids)

	_, err = s.Get(iblt.ID{1})
	require.ErrorIs(t, err, sql.ErrNotFound)
	has, err = s.Has(iblt.ID{1})
	require.NoError(t, err)
	require.False(t, has)
}

func TestPutIdempotent(t *testing.T) {
	s := newStore(t)
	first, err := s.Put([]byte("first"))
	require.NoError(t, err)
	_, err = s.Put([]byte("second"))
	require.NoError(t, err)
	again, err := s.Put([]byte("first"))
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Equal(t, 2, s.Count())

	tip, _ := s.Tip()
	require.Equal(t, store.ContentID([]byte("second")), tip)
	ids, err := s.Sketch().Iterate(true).Collect()
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestPutWithID(t *testing.T) {
	s := newStore(t)
	data := []byte("payload")
	require.ErrorIs(t, s.PutWithID(iblt.ID{1}, data), store.ErrContentMismatch)
	require.NoError(t, s.PutWithID(store.ContentID(data), data))
	require.Equal(t, 1, s.Count())
}

func TestSketchIsCopy(t *testing.T) {
	s := newStore(t)
	_, err := s.Put([]byte("a"))
	require.NoError(t, err)
	sk := s.Sketch()
	sk.Delete(store.ContentID([]byte("a")).Bytes())
	require.False(t, s.Sketch().Empty())
}

func TestSnapshot(t *testing.T) {
	s := newStore(t)
	for i := range 5 {
		_, err := s.Put([]byte(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	snap := s.Snapshot()
	require.Equal(t, uint32(5), snap.Count)
	require.Len(t, snap.Buckets, int(testParams.Buckets))
	require.Equal(t, testParams.Seed0, snap.Seed0)
	require.Equal(t, testParams.Seed1, snap.Seed1)
	require.Equal(t, testParams.K, snap.K)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := store.Open(path, testParams, store.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	var ids []iblt.ID
	for i := range 10 {
		id, err := s.Put([]byte(fmt.Sprint(i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, s.Close())

	s, err = store.Open(path, testParams, store.WithCacheSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	require.Equal(t, 10, s.Count())
	tip, ok := s.Tip()
	require.True(t, ok)
	require.Equal(t, ids[9], tip)
	got, err := s.Sketch().Iterate(true).Collect()
	require.NoError(t, err)
	require.ElementsMatch(t, ids, got)

	_, err = store.Open(path, store.ParamsForNetwork("other", 100, 3))
	require.ErrorIs(t, err, store.ErrSketchMismatch)
}

func TestBadParams(t *testing.T) {
	db := sql.InMemory(sql.WithSchema(store.Schema))
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	_, err := store.New(db, store.SketchParams{Buckets: 0, K: 3})
	require.Error(t, err)
	_, err = store.New(db, store.SketchParams{Buckets: 10, K: 0})
	require.Error(t, err)
}

func TestIDs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	db := sql.InMemory(sql.WithSchema(store.Schema))
	s, err := store.New(db, testParams, store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	var ids []iblt.ID
	for i := range 5 {
		id, err := s.Put([]byte(fmt.Sprintf("item %d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Second)
	}
	got, err := s.IDs(0, 3)
	require.NoError(t, err)
	require.Equal(t, ids[:3], got)
	got, err = s.IDs(3, 3)
	require.NoError(t, err)
	require.Equal(t, ids[3:], got)
	got, err = s.IDs(5, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}
