package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/hms/backend/internal/infrastructure/logger"
	"github.com/hms/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// sourceDir is where new migrations are written; the binary embeds its contents
const sourceDir = "internal/infrastructure/migration/sql"

var errUsage = errors.New("invalid usage")

// dbCommand runs against an open migrator
type dbCommand func(m *migration.Migrator, log *zap.Logger, args []string) error

var dbCommands = map[string]dbCommand{
	"up":      func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() },
	"down":    func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() },
	"step":    stepCommand,
	"goto":    gotoCommand,
	"version": versionCommand,
	"force":   forceCommand,
}

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to a migrations directory (default: the embedded schema)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(log, migrationsPath, args); err != nil {
		if errors.Is(err, errUsage) {
			log.Error(err.Error())
			printUsage()
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(log *zap.Logger, migrationsPath string, args []string) error {
	command, rest := args[0], args[1:]

	if migrationsPath != "" {
		abs, err := filepath.Abs(migrationsPath)
		if err != nil {
			return fmt.Errorf("failed to resolve migrations path: %w", err)
		}
		migrationsPath = abs
	}
	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("source", sourceLabel(migrationsPath)),
	)

	// create and list work on files only
	switch command {
	case "create":
		return createCommand(log, migrationsPath, rest)
	case "list":
		return listCommand(log, migrationsPath)
	}

	cmd, ok := dbCommands[command]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		return err
	}
	defer m.Close()

	return cmd(m, log, rest)
}

func createCommand(log *zap.Logger, dir string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
	}
	if dir == "" {
		dir = sourceDir
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listCommand(log *zap.Logger, dir string) error {
	var (
		names []string
		err   error
	)
	if dir == "" {
		names, err = migration.EmbeddedMigrations()
	} else {
		names, err = migration.ListMigrations(os.DirFS(dir))
	}
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Info("No migrations found")
		return nil
	}

	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func stepCommand(m *migration.Migrator, _ *zap.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate step <n>", errUsage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid step count %q", errUsage, args[0])
	}
	return m.Steps(n)
}

func gotoCommand(m *migration.Migrator, _ *zap.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate goto <version>", errUsage)
	}
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
	}
	return m.GoTo(uint(version))
}

func versionCommand(m *migration.Migrator, log *zap.Logger, _ []string) error {
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

func forceCommand(m *migration.Migrator, log *zap.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate force <version>", errUsage)
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
	}
	log.Warn("Forcing migration version - use with caution!", zap.Int("version", version))
	return m.Force(version)
}

func sourceLabel(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func printUsage() {
	fmt.Println(`Boarding House Billing Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to a migrations directory (default: embedded schema)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  HMS_DATABASE_HOST, HMS_DATABASE_PORT, HMS_DATABASE_USER,
  HMS_DATABASE_PASSWORD, HMS_DATABASE_DBNAME, HMS_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_room_rates "Add seasonal room rates"
  migrate version`)
}
