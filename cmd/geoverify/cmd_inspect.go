package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"geoverify/internal/datalog"
	"geoverify/internal/ddar"
	"geoverify/internal/graph"
	"geoverify/internal/problem"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	inspectLevel int
	inspectStats bool
)

// inspectCmd queries a problem's fact graph with Datalog
var inspectCmd = &cobra.Command{
	Use:   "inspect [problem] [query]",
	Short: "Query a problem's fact graph with Datalog",
	Long: `Realizes the problem's constructions, optionally saturates the
deductive closure, and exposes the resulting facts to Mangle queries.

Examples:
  geoverify inspect problem.txt 'coll(X, Y, Z)'
  geoverify inspect problem.txt 'on_common_line(/a, P)' --level 3
  geoverify inspect problem.txt --stats`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLevel, "level", 0, "Saturate the closure up to this level before querying")
	inspectCmd.Flags().BoolVar(&inspectStats, "stats", false, "Print fact counts per predicate instead of querying")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if !inspectStats && len(args) < 2 {
		return fmt.Errorf("a query is required unless --stats is set")
	}

	problemText, err := readInput(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadCmdConfig()
	if err != nil {
		return err
	}
	builder, tables, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	prob, err := problem.Parse(problemText)
	if err != nil {
		return fmt.Errorf("invalid problem: %w", err)
	}
	g, err := builder.Build(prob)
	if err != nil {
		return fmt.Errorf("failed to realize problem: %w", err)
	}
	for _, s := range prob.Statements {
		kind := graph.Kind(s.Name)
		if !graph.KnownKind(kind) {
			logger.Warn("Skipping unsupported premise", zap.String("statement", s.String()))
			continue
		}
		nodes, ok := g.TryResolve(s.Args)
		if !ok {
			logger.Warn("Skipping premise with unknown point", zap.String("statement", s.String()))
			continue
		}
		if _, err := g.Assert(kind, nodes, graph.Verified()); err != nil {
			return fmt.Errorf("failed to assert premise %q: %w", s.String(), err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if inspectLevel > 0 {
		added, err := ddar.Saturate(ctx, g, tables, ddar.Options{
			MaxLevel:     inspectLevel,
			PassTimeout:  cfg.GetStepTimeout(),
			NumericCheck: cfg.Verify.NumericCheck,
			MaxParallel:  cfg.Verify.MaxParallel,
		})
		if err != nil {
			return fmt.Errorf("saturation failed: %w", err)
		}
		logger.Info("Closure saturated", zap.Int("level", inspectLevel), zap.Int("facts_added", added))
	}

	engine, err := datalog.NewEngine(datalog.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}
	if err := engine.ExportGraph(g); err != nil {
		return fmt.Errorf("failed to export facts: %w", err)
	}

	if inspectStats {
		stats := engine.GetStats()
		fmt.Printf("Total facts: %d\n", stats.TotalFacts)
		preds := make([]string, 0, len(stats.PredicateCounts))
		for p := range stats.PredicateCounts {
			preds = append(preds, p)
		}
		sort.Strings(preds)
		for _, p := range preds {
			fmt.Printf("  %-16s %d\n", p, stats.PredicateCounts[p])
		}
		return nil
	}

	result, err := engine.Query(ctx, args[1])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(result.Bindings) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, row := range result.Bindings {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	fmt.Printf("%d result(s) in %v\n", len(result.Bindings), result.Duration)
	return nil
}
