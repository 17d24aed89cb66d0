package storages

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestWithTx(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `create table kv (k text primary key, v integer)`); err != nil {
		t.Fatal(err)
	}

	if err := WithTx(ctx, db, func(tx Tx) error {
		_, err := tx.Exec(ctx, `insert into kv values (?, ?)`, "a", 1)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	bad := errors.New("bad")
	err = WithTx(ctx, db, func(tx Tx) error {
		if _, err := tx.Exec(ctx, `insert into kv values (?, ?)`, "b", 2); err != nil {
			return err
		}
		return bad
	})
	if !errors.Is(err, bad) {
		t.Fatalf("got %v", err)
	}

	if err := WithTx(ctx, db, func(tx Tx) error {
		row, err := tx.QueryRow(ctx, `select count(*), sum(v) from kv`)
		if err != nil {
			return err
		}
		var n, sum int
		if err := row.Scan(&n, &sum); err != nil {
			return err
		}
		if n != 1 || sum != 1 {
			t.Fatalf("got %d rows, sum %d", n, sum)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}
