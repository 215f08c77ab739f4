package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/larp-planner/internal/repository"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// Store runs scheduler transactions against MySQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InTx begins a transaction, locks the LARP row (unless larpID is 0) and
// hands fn repositories bound to the transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, larpID uint64, fn func(tx scheduler.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if larpID != 0 {
		if err := repository.LockLarp(ctx, tx, larpID); err != nil {
			return err
		}
	}
	if err := fn(repository.NewRepos(tx, s.now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
