package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"geoverify/internal/rules"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rulesCmd groups rule table operations
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, validate, and watch the rule tables",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the loaded theorems and constructors",
	RunE:  runRulesShow,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [defs-file] [rules-file]",
	Short: "Parse and validate table files without loading them",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesCheck,
}

var rulesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured table files and report reloads",
	Long: `Watches the directory holding the configured table files and
reparses them on change. Parse failures keep the previous tables.
Requires file-based tables in the config; the embedded tables cannot
be watched.`,
	RunE: runRulesWatch,
}

func init() {
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesWatchCmd)
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadCmdConfig()
	if err != nil {
		return err
	}
	tables, err := loadTables(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Tables %s (max cost %d)\n\n", tables.Hash[:12], tables.MaxCost())

	fmt.Printf("Theorems (%d):\n", len(tables.Theorems))
	for _, th := range tables.Theorems {
		fmt.Printf("  %-20s %d premise(s) => %s @%d\n",
			th.Name, len(th.Premises), th.Conclusion.String(), th.Cost)
	}

	names := make([]string, 0, len(tables.Defs))
	for name := range tables.Defs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("\nConstructors (%d):\n", len(tables.Defs))
	for _, name := range names {
		d := tables.Defs[name]
		fmt.Printf("  %-20s arity %d, %d implied fact(s)\n", name, d.Arity(), len(d.Implied))
	}
	return nil
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	tables, err := rules.LoadFiles(args[0], args[1])
	if err != nil {
		fmt.Printf("INVALID: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %d theorems, %d constructors, hash %s\n",
		len(tables.Theorems), len(tables.Defs), tables.Hash[:12])
	return nil
}

func runRulesWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadCmdConfig()
	if err != nil {
		return err
	}
	if cfg.UseEmbeddedTables() {
		return fmt.Errorf("no table files configured; set tables.defs_path and tables.rules_path")
	}

	dir := filepath.Dir(cfg.Tables.DefsPath)
	watcher, err := rules.NewWatcher(dir, func(t *rules.Tables) {
		logger.Info("Tables reloaded",
			zap.Int("theorems", len(t.Theorems)),
			zap.Int("constructors", len(t.Defs)),
			zap.String("hash", t.Hash[:12]))
		fmt.Printf("reloaded: %d theorems, %d constructors\n", len(t.Theorems), len(t.Defs))
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s for table changes. Press Ctrl+C to stop.\n", dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stats := watcher.GetStats()
	fmt.Printf("\n%d change(s), %d reload(s), %d parse failure(s)\n",
		stats.FilesChanged, stats.ReloadsTriggered, stats.ParseFailures)
	return nil
}
