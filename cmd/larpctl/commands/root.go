// Package commands implements the larpctl command tree.
package commands

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/database"
	"github.com/iliyamo/larp-planner/internal/queue"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// Backend opens the database-backed pieces a command needs.  Tests swap in
// an in-memory implementation.
type Backend interface {
	Service(ctx context.Context) (*scheduler.Service, error)
	Migrate(ctx context.Context) error
	Close() error
}

// mysqlBackend connects lazily so that "token" works without a database.
type mysqlBackend struct {
	db  *sql.DB
	cfg config.Config
}

func (b *mysqlBackend) open() (*sql.DB, error) {
	if b.db != nil {
		return b.db, nil
	}
	cfg, err := config.LoadFrom(config.OSEnv)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	b.db, b.cfg = db, cfg
	return db, nil
}

func (b *mysqlBackend) Service(context.Context) (*scheduler.Service, error) {
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	policy, err := config.LoadPolicy(b.cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	pub := queue.NewPublisher(config.LoadQueueConfig(config.OSEnv))
	return scheduler.NewService(database.NewStore(db), policy, scheduler.WithNotifier(pub)), nil
}

func (b *mysqlBackend) Migrate(ctx context.Context) error {
	db, err := b.open()
	if err != nil {
		return err
	}
	return database.Migrate(ctx, db)
}

func (b *mysqlBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// NewRootCommand builds the command tree around backend.
func NewRootCommand(backend Backend, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "larpctl",
		Short: "larpctl - LARP schedule and conflict administration",
		Long: `larpctl manages the LARP planner database from the command line:
apply the schema, re-scan schedules for conflicts, list open conflicts and
issue organizer tokens for the HTTP API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.AddCommand(
		newMigrateCommand(backend),
		newRescanCommand(backend),
		newConflictsCommand(backend),
		newTokenCommand(),
	)
	return root
}

// Execute runs larpctl against the MySQL database named by the environment.
func Execute(version string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	backend := &mysqlBackend{}
	defer backend.Close()
	root := NewRootCommand(backend, os.Stdout, os.Stderr)
	root.Version = version
	return root.Execute()
}
