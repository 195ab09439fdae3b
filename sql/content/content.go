// Package content holds content payloads keyed by their identifiers.
package content

import (
	"fmt"
	"time"

	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/sql"
)

// Schema creates the content table.
const Schema = `
create table if not exists content (
	id       char(32) primary key,
	data     blob not null,
	received int not null
) without rowid;
create index if not exists content_by_received on content (received, id);
`

// Add inserts the payload. It returns sql.ErrObjectExists if the id is
// already stored.
func Add(db sql.Executor, id iblt.ID, data []byte, received time.Time) error {
	if _, err := db.Exec(`insert into content (id, data, received) values (?1, ?2, ?3);`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id[:])
			stmt.BindBytes(2, data)
			stmt.BindInt64(3, received.UnixNano())
		}, nil); err != nil {
		return fmt.Errorf("insert content %s: %w", id.ShortString(), err)
	}
	return nil
}

// Get returns the payload stored under id.
func Get(db sql.Executor, id iblt.ID) ([]byte, error) {
	return sql.LoadBlob(db, "select data from content where id = ?1;", id[:])
}

// Has returns true if the payload is stored.
func Has(db sql.Executor, id iblt.ID) (bool, error) {
	rows, err := db.Exec("select 1 from content where id = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id[:])
		}, nil)
	if err != nil {
		return false, fmt.Errorf("has content %s: %w", id.ShortString(), err)
	}
	return rows > 0, nil
}

// IterateIDs calls fn for each stored id in the order of arrival until fn
// returns false.
func IterateIDs(db sql.Executor, fn func(id iblt.ID) bool) error {
	if _, err := db.Exec("select id from content order by received, id;", nil,
		func(stmt *sql.Statement) bool {
			var id iblt.ID
			stmt.ColumnBytes(0, id[:])
			return fn(id)
		}); err != nil {
		return fmt.Errorf("iterate content ids: %w", err)
	}
	return nil
}

// ListIDs returns up to limit stored ids in the order of arrival, skipping
// the first offset ones.
func ListIDs(db sql.Executor, offset, limit int) ([]iblt.ID, error) {
	var ids []iblt.ID
	if _, err := db.Exec("select id from content order by received, id limit ?1 offset ?2;",
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(limit))
			stmt.BindInt64(2, int64(offset))
		}, func(stmt *sql.Statement) bool {
			var id iblt.ID
			stmt.ColumnBytes(0, id[:])
			ids = append(ids, id)
			return true
		}); err != nil {
		return nil, fmt.Errorf("list content ids: %w", err)
	}
	return ids, nil
}
