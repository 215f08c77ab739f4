package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Statements splits the embedded schema into individual statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates any missing table.  Every statement is idempotent, so
// running it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := Statements()
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d/%d: %w", i+1, len(stmts), err)
		}
	}
	log.Printf("database: schema up to date (%d statements)", len(stmts))
	return nil
}
