package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/takeoutools/takeoutctl/internal/auth"
	"github.com/takeoutools/takeoutctl/internal/config"
	"github.com/takeoutools/takeoutctl/internal/engine"
	"github.com/takeoutools/takeoutctl/internal/fetch"
	"github.com/takeoutools/takeoutctl/internal/store"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore    *store.Store
	globalEngine   *engine.Engine
	globalProvider auth.Provider
)

// initializeComponents wires the store, fetcher, auth provider, and
// engine from the loaded config.
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.New(globalCfg.Download.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	globalStore = st

	fetcher := fetch.NewFetcher(globalCfg.Job.ID, logger)
	globalProvider = &auth.CurlFileProvider{Path: globalCfg.Auth.CurlPath}
	globalEngine = engine.New(fetcher, globalProvider, globalStore, logger)

	logger.Debug("components initialized", "job", globalCfg.Job.ID)
	return nil
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
		"show":    true,
		"init":    true,
	}
	return skipInitCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "takeoutctl",
		Short: "Resumable downloader for Google Takeout export jobs",
		Long: `takeoutctl retrieves the numbered archive chunks of a Google Takeout
export job, one at a time, resuming where the last run stopped. When the
session token expires mid-sequence it refreshes credentials from a captured
browser request and retries the failing chunk.

Progress is persisted after every completed chunk, so a crash or abort
never re-downloads finished archives.`,
		Example: `  takeoutctl fetch --start 1 --end 10
  takeoutctl fetch --continue
  takeoutctl fetch --continue --dir /mnt/f/GoogleTakeout --delay 10
  takeoutctl status
  takeoutctl config show`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Warn("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			// Command-line overrides that affect component wiring.
			if fetchJobID != "" {
				globalCfg.Job.ID = fetchJobID
			}
			if fetchCurl != "" {
				globalCfg.Auth.CurlPath = fetchCurl
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath)
			}

			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	cmd.AddCommand(
		newFetchCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}
