// Package kvstore keeps small scale-encoded values under string keys.
package kvstore

import (
	"fmt"

	"github.com/biadnet/go-biadnet/codec"
	"github.com/biadnet/go-biadnet/sql"
)

// Schema creates the kvstore table.
const Schema = `
create table if not exists kvstore (
	id    text primary key,
	value blob not null
) without rowid;
`

// Put stores the encoded value under key, replacing the previous one.
func Put(db sql.Executor, key string, value codec.Encodable) error {
	bytes, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed encoding: %w", err)
	}

	if _, err := db.Exec(`
		insert into kvstore (id, value) values (?1, ?2)
		on conflict (id) do
		update set value = ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, key)
			stmt.BindBytes(2, bytes)
		}, nil); err != nil {
		return fmt.Errorf("failed to insert value: %w", err)
	}

	return nil
}

// Get decodes the value stored under key.
// It returns sql.ErrNotFound if there's no such key.
func Get(db sql.Executor, key string, value codec.Decodable) error {
	var val []byte
	if rows, err := db.Exec("select value from kvstore where id = ?1;", func(stmt *sql.Statement) {
		stmt.BindText(1, key)
	}, func(stmt *sql.Statement) bool {
		val = make([]byte, stmt.ColumnLen(0))
		stmt.ColumnBytes(0, val[:])
		return true
	}); err != nil {
		return fmt.Errorf("failed to get value: %w", err)
	} else if rows == 0 {
		return fmt.Errorf("failed to get value: %w", sql.ErrNotFound)
	}

	if err := codec.Decode(val, value); err != nil {
		return fmt.Errorf("failed decoding: %w", err)
	}
	return nil
}

// Delete removes the value stored under key.
func Delete(db sql.Executor, key string) error {
	if _, err := db.Exec("delete from kvstore where id = ?1;", func(stmt *sql.Statement) {
		stmt.BindText(1, key)
	}, nil); err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return nil
}
