package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"geoverify/internal/config"
	"geoverify/internal/construct"
	"geoverify/internal/logging"
	"geoverify/internal/rules"
	"geoverify/internal/store"
	"geoverify/internal/verify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "geoverify",
	Short: "geoverify - synthetic geometry proof and solution verifier",
	Long: `geoverify checks machine-generated geometry proofs and solutions.

A problem states point constructions and a goal predicate. A proof is a
sequence of construction and derivation steps; each derivation must follow
from what came before under the rule tables. A solution is an auxiliary
construction that makes the goal derivable.

Verification combines a symbolic rule engine with an algebraic reasoner
over angles and lengths, deepening level by level until the goal holds or
the search saturates.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		if err := logging.Initialize(ws); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.geoverify/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(resolveWorkspace(), ".geoverify", "config.yaml")
}

func loadCmdConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadTables loads the rule tables named by the config, falling back to
// the ones baked into the binary.
func loadTables(cfg *config.Config) (*rules.Tables, error) {
	if cfg.UseEmbeddedTables() {
		return rules.LoadDefault()
	}
	return rules.LoadFiles(cfg.Tables.DefsPath, cfg.Tables.RulesPath)
}

func paramsFromConfig(cfg *config.Config) verify.Params {
	return verify.Params{
		StepMaxLevel: cfg.Verify.StepMaxLevel,
		GoalMaxLevel: cfg.Verify.GoalMaxLevel,
		StepTimeout:  cfg.GetStepTimeout(),
		GoalTimeout:  cfg.GetGoalTimeout(),
		NumericCheck: cfg.Verify.NumericCheck,
		MaxParallel:  cfg.Verify.MaxParallel,
	}
}

// newVerifier assembles a verifier from the config, attaching the sqlite
// verdict cache when enabled. The returned closer is safe to call even
// when no cache was opened.
func newVerifier(cfg *config.Config) (*verify.Verifier, func(), error) {
	tables, err := loadTables(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rule tables: %w", err)
	}

	v := verify.NewVerifier(tables, paramsFromConfig(cfg))
	closer := func() {}

	if cfg.Cache.Enabled {
		dbPath := cfg.Cache.DatabasePath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(resolveWorkspace(), dbPath)
		}
		cache, err := store.Open(dbPath)
		if err != nil {
			logger.Warn("verdict cache unavailable, continuing without it", zap.Error(err))
		} else {
			v.WithCache(cache)
			closer = func() { _ = cache.Close() }
		}
	}
	return v, closer, nil
}

func newBuilder(cfg *config.Config) (*construct.Builder, *rules.Tables, error) {
	tables, err := loadTables(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rule tables: %w", err)
	}
	return construct.NewBuilder(tables), tables, nil
}

// readInput reads a positional argument: "-" means stdin, an existing
// file path means its contents, anything else is taken literally.
func readInput(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return string(data), nil
	}
	return arg, nil
}
