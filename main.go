package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	batchSizeArg int
	dryRun       bool
)

var rootCmd = &cobra.Command{
	Use:           "rxferry [dump.sql]",
	Short:         "Load COPY sections of a PostgreSQL text dump into MySQL",
	Args:          cobra.MaximumNArgs(1),
	RunE:          runLoad,
	Version:       versionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.Flags().IntVar(&batchSizeArg, "batch-size", 0, "rows per commit (overrides batch_size)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and map rows without touching the database")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rxferry:", err)
		os.Exit(1)
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := loadConfig(configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	if batchSizeArg > 0 {
		cfg.BatchSize = batchSizeArg
	}

	dumpPath := cfg.resolvePath(cfg.Dump)
	if len(args) > 0 {
		dumpPath = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(cmd.OutOrStdout(), "", 0)
	return run(ctx, logger, cfg, dumpPath, dryRun)
}

// run performs one full load. Every fatal path returns an error wrapping
// ErrFileNotFound or ErrConnection where that applies.
func run(ctx context.Context, logger *log.Logger, cfg *LoadConfig, dumpPath string, dry bool) error {
	start := time.Now()
	logger.Printf("Starting load at %s", start.Format(time.DateTime))

	f, err := os.Open(dumpPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, dumpPath)
		}
		return fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	if st, err := f.Stat(); err == nil {
		logger.Printf("Dump: %s (%s)", dumpPath, humanize.IBytes(uint64(st.Size())))
	}

	target, err := newTargetDB(cfg.Target.Type)
	if err != nil {
		return err
	}

	if dry {
		logger.Printf("Dry run: rows are mapped but not written")
		summary, err := newLoader(nil, target, logger, cfg.BatchSize, cfg.MaxLoggedErrors).Load(ctx, f)
		if err != nil {
			return err
		}
		logger.Printf("")
		logger.Printf("Dry run completed in %s: %s lines read", time.Since(start).Round(time.Millisecond), humanize.Comma(int64(summary.Lines)))
		return nil
	}

	db, err := connectTarget(ctx, logger, cfg, target)
	if err != nil {
		return err
	}
	defer db.Close()

	dbName, err := target.CurrentDatabase(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	logger.Printf("Database: %s", dbName)

	before := collectRowCounts(ctx, db, target, logger)
	logger.Printf("")
	printRowCounts(logger, "Current row counts", before, nil)

	if err := runHookFiles(ctx, db, logger, cfg, cfg.Hooks.BeforeLoad, "before_load", dbName); err != nil {
		return err
	}

	logger.Printf("")
	logger.Printf("Starting data import...")
	loader := newLoader(db, target, logger, cfg.BatchSize, cfg.MaxLoggedErrors)
	if _, err := loader.Load(ctx, f); err != nil {
		return err
	}

	if err := runHookFiles(ctx, db, logger, cfg, cfg.Hooks.AfterLoad, "after_load", dbName); err != nil {
		return err
	}

	logger.Printf("")
	logger.Printf("Load completed in %s", time.Since(start).Round(time.Millisecond))
	printRowCounts(logger, "Final row counts", collectRowCounts(ctx, db, target, logger), before)
	return nil
}

// connectTarget opens a single-connection handle and verifies it.
func connectTarget(ctx context.Context, logger *log.Logger, cfg *LoadConfig, target TargetDB) (*sql.DB, error) {
	logger.Printf("Connecting to %s (%s)...", target.Name(), cfg.redactedTarget())
	dsn, err := target.DSN(cfg.Target)
	if err != nil {
		return nil, err
	}
	db, err := target.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	logger.Printf("Connected to %s", target.Name())
	return db, nil
}
