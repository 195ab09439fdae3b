package kvstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/sql/kvstore"
)

func TestKeyValue(t *testing.T) {
	db := sql.InMemory(sql.WithSchema(kvstore.Schema))
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	var got iblt.ID
	require.ErrorIs(t, kvstore.Get(db, "tip", &got), sql.ErrNotFound)

	id := iblt.ID{1, 2, 3}
	require.NoError(t, kvstore.Put(db, "tip", &id))
	require.NoError(t, kvstore.Get(db, "tip", &got))
	require.Equal(t, id, got)

	id2 := iblt.ID{4, 5, 6}
	require.NoError(t, kvstore.Put(db, "tip", &id2))
	require.NoError(t, kvstore.Get(db, "tip", &got))
	require.Equal(t, id2, got)

	require.NoError(t, kvstore.Delete(db, "tip"))
	require.ErrorIs(t, kvstore.Get(db, "tip", &got), sql.ErrNotFound)
}
