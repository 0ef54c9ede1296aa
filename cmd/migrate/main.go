package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/migration"
)

const defaultMigrationsPath = "internal/infrastructure/migration/sql"

type cli struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Land plots database migration tool",
		Long: `Applies the PostgreSQL schema of the local plot mirror.

SQLite deployments create their tables with AutoMigrate on server start and
do not need this tool. Connection settings come from config.toml and the
LANDPLOTS_DATABASE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			log, err := logger.New(&logger.Config{
				Level:      c.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync(c.log)
		},
	}
	root.PersistentFlags().StringVar(&c.path, "path", "", "migrations directory (default: the migrations compiled into the binary)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		c.withMigrator("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		c.withMigrator("down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		c.withMigrator("step <n>", "Apply n migrations (positive=up, negative=down)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		c.withMigrator("goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		c.withMigrator("version", "Show the current migration version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if v == 0 {
					c.log.Info("No migrations applied")
					return nil
				}
				c.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			}),
		c.withMigrator("force <version>", "Force the recorded version (use with caution)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				c.log.Warn("Forcing migration version")
				return m.Force(v)
			}),
		c.dropCmd(),
		c.createCmd(),
		c.listCmd(),
	)
	return root
}

// withMigrator builds a subcommand that runs fn against a connected migrator
func (c *cli) withMigrator(use, short string, args cobra.PositionalArgs, fn func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := c.open()
			if err != nil {
				return err
			}
			defer closeFn()
			c.log.Info("Running migration command", zap.String("command", cmd.Name()))
			return fn(m, args)
		},
	}
}

func (c *cli) dropCmd() *cobra.Command {
	var confirm bool
	cmd := c.withMigrator("drop", "Drop every database object", cobra.NoArgs,
		func(m *migration.Migrator, _ []string) error { return m.Drop() })
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !confirm {
			return errors.New("drop cancelled, pass --confirm to drop all database objects")
		}
		return run(cmd, args)
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the drop")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create a new migration file pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := c.path
			if dir == "" {
				dir = defaultMigrationsPath
			}
			desc := ""
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc, time.Now())
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				names []string
				err   error
			)
			if c.path == "" {
				names, err = migration.Embedded()
			} else {
				names, err = migration.ListMigrations(c.path)
			}
			if err != nil {
				return err
			}
			if len(names) == 0 {
				c.log.Info("No migrations found")
				return nil
			}
			for _, n := range names {
				cmd.Println("  -", n)
			}
			return nil
		},
	}
}

// open connects to PostgreSQL and returns a migrator with its cleanup
func (c *cli) open() (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("migrations target postgres, database.driver is %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var opts []migration.Option
	if c.path != "" {
		opts = append(opts, migration.FromDir(c.path))
	}
	m, err := migration.New(db, c.log, opts...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}
