package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/storage"
	"bodega/internal/util"
)

var (
	verbose bool

	cfg    config.Config
	logger *zap.Logger
	db     *storage.DB
)

var rootCmd = &cobra.Command{
	Use:   "bodega",
	Short: "Search and browse shop inventory snapshots",
	Long: `bodega loads per-town shop snapshots, normalizes every item and answers
searches, recency views and directory browsing from the command line.

Snapshots come from DATA_DIR, or from DATA_BASE_URL when it is set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = util.NewLogger(level)
		if err != nil {
			return err
		}
		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
}

// cleanup runs after every command, including failed ones; cobra skips
// post-run hooks when RunE returns an error.
func cleanup() {
	if db != nil {
		_ = db.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loadCmd, searchCmd, addedCmd, removedCmd, browseCmd, exportCmd, normalizeCmd, runsCmd, serveCmd)
}

// loadCatalog runs one full load and returns the resulting index.
func loadCatalog(ctx context.Context) (*catalog.Index, error) {
	svc := catalog.NewSyncService(db, cfg, nil, logger, nil)
	if _, err := svc.Load(ctx); err != nil {
		return nil, err
	}
	return svc.Current(), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cleanup()
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
