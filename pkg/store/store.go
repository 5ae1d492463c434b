// Package store implements the relational store: it persists files,
// tags, file-tag associations, tag groups, tag-group membership, pins, and
// collection metadata in a per-collection embedded SQLite database, and
// answers the set-algebra queries the translator (pkg/engine) needs.
//
// Every mutating method that isn't itself already transactional is meant
// to be called inside a single per-filesystem-call transaction; WithTx is
// the entry point callers use for that.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps the collection's db.sqlite3. It is safe for concurrent use
// from multiple goroutines: sqlx/database-sql pool their own connections,
// and every mutation runs inside a single serialisable transaction that
// commits or rolls back as a unit.
type Store struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// Open opens (creating if absent) the SQLite file at path and runs any
// pending migrations.
func Open(path string, log *logrus.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serialises writers anyway; avoid SQLITE_BUSY churn.

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	if log == nil {
		log = logrus.New()
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a single transactional unit of work, handed to every mutating
// query method so a filesystem operation's writes commit or roll back
// together.
type Tx struct {
	tx  *sqlx.Tx
	log *logrus.Logger
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back if fn returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	tx := &Tx{tx: sqlTx, log: s.log}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Warn("rollback failed after operation error")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ReadOnly runs fn for pure queries like lookup/readdir/getattr/readlink.
// It opens the same kind of transaction WithTx does.
func (s *Store) ReadOnly(ctx context.Context, fn func(tx *Tx) error) error {
	return s.WithTx(ctx, fn)
}

// GetMetadata returns the collection's singleton metadata row.
func (tx *Tx) GetMetadata() (Metadata, error) {
	var m Metadata
	err := tx.tx.Get(&m, `SELECT migration_version, software_version, root_modified_at FROM supertag_meta WHERE id = 1`)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading metadata: %w", err)
	}
	return m, nil
}

// TouchRoot bumps root_modified_at, called after any mutation that changes
// the set of top-level directory entries: tag or tag-group creation or
// deletion.
func (tx *Tx) TouchRoot(now float64) error {
	_, err := tx.tx.Exec(`UPDATE supertag_meta SET root_modified_at = ? WHERE id = 1`, now)
	return err
}

// StatFS reports synthetic totals for the statfs bridge call: the count
// of Files and Tags.
func (tx *Tx) StatFS() (files, tags int64, err error) {
	if err = tx.tx.Get(&files, `SELECT COUNT(*) FROM files`); err != nil {
		return 0, 0, fmt.Errorf("counting files: %w", err)
	}
	if err = tx.tx.Get(&tags, `SELECT COUNT(*) FROM tags`); err != nil {
		return 0, 0, fmt.Errorf("counting tags: %w", err)
	}
	return files, tags, nil
}
