package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/asakaida/pagetypes/internal/infrastructure/config"
	"github.com/asakaida/pagetypes/internal/infrastructure/database"
	"github.com/asakaida/pagetypes/internal/infrastructure/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

const (
	migrationsPathSuffix = "internal/infrastructure/database/migrations/postgres"
)

var (
	envFlag string
	pg      *database.Postgres
	log     = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for the page type service",
	Long: `Database migration tool for the page type service.
Manages PostgreSQL schema migrations using golang-migrate and loads demo data.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupDatabase,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pg != nil {
			pg.Close()
		}
		log.Sync()
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long:  `Apply all pending migrations to the database.`,
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Long:  `Migrate to a specific version number.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGoto,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	Long:  `Display the current migration version of the database.`,
	RunE:  runVersion,
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runForce,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo page types and attributes",
	Long: `Create demo page types and attributes and assign a few attributes.
Rows whose slug already exists are left untouched.`,
	RunE: runSeed,
}

func init() {
	// Add global --env flag to all commands
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	// Add subcommands
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Failed to execute command", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	// Initialize configuration from .env.{env} file
	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.StorageDriverPostgres {
		return fmt.Errorf("migrations require STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.Database.Driver)
	}

	l, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log = l.With("env", envFlag)

	// Connect to database
	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Connected to database",
		"user", cfg.Database.User,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database,
	)
	return nil
}

func getMigrationsPath() (string, error) {
	projectRoot, err := config.ProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	migrationsPath := filepath.Join(projectRoot, migrationsPathSuffix)
	log.Debug("Using migrations path", "path", migrationsPath)
	return migrationsPath, nil
}

func newMigrate() (*migrate.Migrate, error) {
	migrationsPath, err := getMigrationsPath()
	if err != nil {
		return nil, err
	}
	return pg.NewMigrate(migrationsPath)
}

func runUp(cmd *cobra.Command, args []string) error {
	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("No migrations to apply")
	case err != nil:
		return fmt.Errorf("migration up failed: %w", err)
	default:
		log.Info("Migration up completed successfully")
	}
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	steps := 1 // Default: rollback 1 migration
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("steps must be a positive integer, got %q", args[0])
		}
		steps = n
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Steps(-steps)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("No migrations to rollback")
	case err != nil:
		return fmt.Errorf("migration down failed: %w", err)
	default:
		log.Info("Migration down completed successfully", "steps", steps)
	}
	return nil
}

func runGoto(cmd *cobra.Command, args []string) error {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Migrate(uint(version))
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("Already at version", "version", version)
	case err != nil:
		return fmt.Errorf("migration goto failed: %w", err)
	default:
		log.Info("Migration goto completed successfully", "version", version)
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	m, err := newMigrate()
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("No migrations applied yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	log.Info("Current version", "version", version, "dirty", dirty)
	return nil
}

func runForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("version must be an integer, got %q", args[0])
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("migration force failed: %w", err)
	}

	log.Warn("Migration forced", "version", version)
	return nil
}
