package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/aggregator"
	"github.com/pable/go-lineup-metrics/internal/config"
	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/logging"
	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/query"
	"github.com/pable/go-lineup-metrics/internal/storage"
)

var (
	dbPath    string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lineups",
	Short: "Possession-based lineup and plus/minus analytics",
	Long: `Ingest play-by-play event streams, segment them into possessions and
stints, and report lineup ratings and player on/off differentials.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errkind.IsConfig(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "console or json")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(lineupCmd)
	rootCmd.AddCommand(onoffCmd)
	rootCmd.AddCommand(stintsCmd)
	rootCmd.AddCommand(intervalsCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup layers config, then applies explicit flags on top.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	dbPath = c.DBPath

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log = logging.New(level, cfg.LogFormat)
	logging.SetDefault(log)
	return nil
}

func openDB() (*storage.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

func thresholds() aggregator.Thresholds {
	return aggregator.Thresholds{Low: cfg.MinSampleLow, High: cfg.MinSampleHigh}
}

func newService(db *storage.DB) *query.Service {
	return query.NewService(db, thresholds())
}

func scopeFlag(cmd *cobra.Command) (model.Scope, error) {
	s, _ := cmd.Flags().GetString("scope")
	return model.ParseScope(s)
}

func addScopeFlag(cmd *cobra.Command) {
	cmd.Flags().String("scope", "all", "all, season:<id> or game:<id>")
}
