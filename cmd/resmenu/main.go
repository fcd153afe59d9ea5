// Package main is the CLI entry point for resmenu.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/resmenu/internal/config"
	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
	"github.com/eliteGoblin/focusd/resmenu/internal/infra"
	"github.com/eliteGoblin/focusd/resmenu/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "resmenu",
	Short: "Display mode switcher with curated resolutions",
	Long: `resmenu lists the display modes of every connected display, groups them
into Recommended, More and Legacy tiers, and switches between them.

Favorites, the previous mode and risk acknowledgements are remembered per
display across restarts.`,
	Version:      Version,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List displays and their curated modes",
	Long:  `Shows every active display with its current mode, favorites, previous mode and tiers. Use --json for machine-readable output.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var setCmd = &cobra.Command{
	Use:   "set <display> <mode>",
	Short: "Switch a display to a mode",
	Long: `Switches a display to the given mode.

<display> is a display ID, a 1-based index from 'resmenu list', or a
case-insensitive name prefix. <mode> is WxH[@Hz][h|hidpi], for example
2560x1440, 1920x1080@59.94 or 1512x982h. Without a refresh rate the best
rate for that resolution is used.

Risky modes ask for confirmation once per display; --yes skips the prompt.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <display> <mode>",
	Short: "Add or remove a favorite mode",
	Args:  cobra.ExactArgs(2),
	RunE:  runFavorite,
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites <display>",
	Short: "List favorite modes for a display",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorites,
}

var previousCmd = &cobra.Command{
	Use:   "previous <display>",
	Short: "Switch back to the previous mode",
	Long:  `Switches the display to the mode it used before the last change made by resmenu.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPrevious,
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Open the interactive display menu",
	Args:  cobra.NoArgs,
	RunE:  runMenu,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report display changes until interrupted",
	Long:  `Polls the display configuration and prints a line whenever displays are connected, disconnected or change mode.`,
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath  string
	backendFlag string
	verbose     bool
	jsonOutput  bool
	assumeYes   bool
	forceWrite  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Display backend override (native|sim)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")

	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	setCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm risky modes without prompting")
	previousCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm risky modes without prompting")
	configInitCmd.Flags().BoolVar(&forceWrite, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(favoriteCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(previousCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles the wired components for one command invocation.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  domain.StateStore
	ctrl   *usecase.Controller
}

// setup loads configuration and wires backend, store and controller.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := createLogger(cfg, verbose)

	backend, err := newBackend(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	catalog := usecase.NewCatalog(backend, logger)
	ctrl := usecase.NewController(catalog, backend, store, logger)
	ctrl.Refresh(ctx)

	return &app{cfg: cfg, logger: logger, store: store, ctrl: ctrl}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close state store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if backendFlag != "" {
		cfg.DisplayBackend = backendFlag
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newBackend(cfg config.Config, logger *zap.Logger) (domain.DisplayBackend, error) {
	switch cfg.DisplayBackend {
	case config.DisplayBackendSim:
		backend, err := infra.NewSimBackendFromFile(cfg.SimFixture)
		if err != nil {
			return nil, fmt.Errorf("failed to load display fixture: %w", err)
		}
		return backend, nil
	default:
		backend, err := infra.NewNativeBackend(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open display backend: %w", err)
		}
		return backend, nil
	}
}

func newStore(cfg config.Config) (domain.StateStore, error) {
	switch cfg.StateBackend {
	case config.StateBackendEncrypted:
		store, err := infra.NewEncryptedStateStoreWithKeyProvider(cfg.DataDir, infra.NewStateKeyProvider(cfg.DataDir))
		if err != nil {
			return nil, fmt.Errorf("failed to open encrypted state store: %w", err)
		}
		return store, nil
	default:
		store, err := infra.NewFileStateStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		return store, nil
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func createLogger(cfg config.Config, verbose bool) *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{cfg.LogPath}
	zcfg.ErrorOutputPaths = []string{strings.TrimSuffix(cfg.LogPath, ".log") + ".error.log"}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("resmenu %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
