package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/config"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/logger"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type cliOptions struct {
	migrationsPath string
	logLevel       string
	command        string
	args           []string
}

func parseCLI() (cliOptions, bool) {
	var opts cliOptions
	flag.StringVar(&opts.migrationsPath, "path", "", "migrations directory (defaults to ./migrations)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	rest := flag.Args()
	if len(rest) == 0 {
		return opts, false
	}
	opts.command = rest[0]
	opts.args = rest[1:]
	return opts, true
}

func newCLILogger(level string) *zap.Logger {
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func main() {
	opts, ok := parseCLI()
	if !ok {
		printUsage()
		os.Exit(1)
	}

	log := newCLILogger(opts.logLevel)
	defer func() {
		_ = log.Sync()
	}()

	migrationsPath := resolveMigrationsPath(opts.migrationsPath, log)

	log.Info("Migration CLI started",
		zap.String("command", opts.command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list work on the filesystem alone.
	switch opts.command {
	case "create":
		runCreate(opts.args, migrationsPath, log)
		return
	case "list":
		runList(migrationsPath, log)
		return
	}

	m := openMigrator(migrationsPath, log)
	defer m.Close()

	if err := runDatabaseCommand(m, opts.command, opts.args, log); err != nil {
		log.Fatal("Command failed", zap.String("command", opts.command), zap.Error(err))
	}
}

func openMigrator(migrationsPath string, log *zap.Logger) *migration.Migrator {
	m, err := connectMigrator(migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to open migrator", zap.Error(err))
	}
	return m
}

func connectMigrator(migrationsPath string, log *zap.Logger) (*migration.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return migration.New(db, migrationsPath, log)
}

func runDatabaseCommand(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step":
		n, err := intArg(args, "step count required, usage: migrate step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)

	case "goto":
		if len(args) < 1 {
			return fmt.Errorf("version required, usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return m.GoTo(uint(version))

	case "version":
		return reportVersion(m, log)

	case "force":
		version, err := intArg(args, "version required, usage: migrate force <version>")
		if err != nil {
			return err
		}
		return m.Force(version)

	case "drop":
		if !hasConfirmFlag(args) {
			return fmt.Errorf("drop cancelled, use 'migrate drop -confirm' to confirm")
		}
		return m.Drop()

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func reportVersion(m *migration.Migrator, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// resolveMigrationsPath finds the migrations directory: the explicit
// flag, the working directory, then next to the installed binary.
func resolveMigrationsPath(path string, log *zap.Logger) string {
	if path == "" {
		if _, err := os.Stat(defaultMigrationsPath); err == nil {
			path = defaultMigrationsPath
		} else if execPath, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
		if path == "" {
			path = defaultMigrationsPath
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatal("Failed to get absolute path", zap.Error(err))
	}
	return abs
}

func runCreate(args []string, migrationsPath string, log *zap.Logger) {
	if len(args) < 1 {
		log.Fatal("Migration name required. Usage: migrate create <name> [description]")
	}
	name := args[0]
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(migrationsPath, name, description)
	if err != nil {
		log.Fatal("Failed to create migration", zap.Error(err))
	}

	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
}

func runList(migrationsPath string, log *zap.Logger) {
	migrations, err := migration.ListMigrations(migrationsPath)
	if err != nil {
		log.Fatal("Failed to list migrations", zap.Error(err))
	}

	if len(migrations) == 0 {
		log.Info("No migrations found")
		return
	}

	log.Info("Available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`Charging Backend Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply every pending migration
  down                  Roll back all applied migrations
  step <n>              Apply n migrations, negative n rolls back
  goto <version>        Migrate the schema to a specific version
  version               Print the current schema version
  force <version>       Force the version marker, repairs a dirty state
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Scaffold a new up/down migration pair
  list                  Show the migrations found on disk

Flags:
  -path string          migrations directory (defaults to ./migrations)
  -log-level string     log level: debug, info, warn, error

Examples:
  migrate up
  migrate step -1
  migrate create add_charge_lock "Add the charge lock column to orders"
  migrate version`)
}
