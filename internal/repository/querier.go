package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories need.
// Passing a *sql.Tx makes every call participate in the caller's
// transaction; the caller must commit or roll it back.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos bundles one repository per table, all bound to the same Querier.
// Method names do not collide, so a *Repos satisfies the scheduler's
// transaction interface directly.
type Repos struct {
	*LarpRepo
	*LocationRepo
	*EventRepo
	*ResourceRepo
	*BookingRepo
	*ConflictRepo
}

// NewRepos binds every repository to q.  now stamps created_at/updated_at
// columns; nil means time.Now.
func NewRepos(q Querier, now func() time.Time) *Repos {
	if now == nil {
		now = time.Now
	}
	clock := func() time.Time { return now().UTC().Truncate(time.Microsecond) }
	return &Repos{
		LarpRepo:     &LarpRepo{db: q, now: clock},
		LocationRepo: &LocationRepo{db: q, now: clock},
		EventRepo:    &EventRepo{db: q, now: clock},
		ResourceRepo: &ResourceRepo{db: q, now: clock},
		BookingRepo:  &BookingRepo{db: q, now: clock},
		ConflictRepo: &ConflictRepo{db: q},
	}
}

// LockLarp takes a row lock on the LARP for the rest of the transaction.
// Every scheduler transaction locks its LARP first, which serializes
// writes and reconciliation passes per LARP.  ErrLarpNotFound is returned
// when the row does not exist.
func LockLarp(ctx context.Context, q Querier, larpID uint64) error {
	const lock = `SELECT id FROM larps WHERE id = ? FOR UPDATE`
	var id uint64
	if err := q.QueryRowContext(ctx, lock, larpID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLarpNotFound
		}
		return err
	}
	return nil
}

func nullUint64(p *uint64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func uint64Ptr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
