package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// statusCmd shows the effective configuration
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show geoverify configuration and table status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("geoverify status")
	fmt.Println("================")
	fmt.Printf("Workspace: %s\n", resolveWorkspace())
	fmt.Printf("Config:    %s", resolveConfigPath())
	if _, err := os.Stat(resolveConfigPath()); err != nil {
		fmt.Print(" (defaults)")
	}
	fmt.Println()

	cfg, err := loadCmdConfig()
	if err != nil {
		return err
	}

	if cfg.UseEmbeddedTables() {
		fmt.Println("Tables:    embedded")
	} else {
		fmt.Printf("Tables:    %s, %s (watch=%v)\n",
			cfg.Tables.DefsPath, cfg.Tables.RulesPath, cfg.Tables.Watch)
	}

	tables, err := loadTables(cfg)
	if err != nil {
		fmt.Printf("           LOAD FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("           %d theorems, %d constructors, hash %s\n",
		len(tables.Theorems), len(tables.Defs), tables.Hash[:12])

	fmt.Printf("Search:    step level %d (%s), goal level %d (%s), numeric check %v\n",
		cfg.Verify.StepMaxLevel, cfg.GetStepTimeout(),
		cfg.Verify.GoalMaxLevel, cfg.GetGoalTimeout(),
		cfg.Verify.NumericCheck)

	if cfg.Cache.Enabled {
		fmt.Printf("Cache:     %s\n", cfg.Cache.DatabasePath)
	} else {
		fmt.Println("Cache:     disabled")
	}
	return nil
}
