package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// solveCmd checks whether an auxiliary construction solves a problem
var solveCmd = &cobra.Command{
	Use:   "solve [problem] [solution]",
	Short: "Check whether an auxiliary construction makes the goal derivable",
	Long: `Splices the solution's construction clauses into the problem's
premises and searches for the goal. The solution may be omitted to test
whether the bare problem is already solvable.

Example:
  geoverify solve problem.txt "e = on_line e a c, on_line e b d"
  geoverify solve problem.txt

Exit status is 0 when the goal is derivable and 1 otherwise.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	problemText, err := readInput(args[0])
	if err != nil {
		return err
	}
	solutionText := ""
	if len(args) > 1 {
		solutionText, err = readInput(args[1])
		if err != nil {
			return err
		}
	}

	cfg, err := loadCmdConfig()
	if err != nil {
		return err
	}
	verifier, closeCache, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Checking solution",
		zap.Int("problem_bytes", len(problemText)),
		zap.Int("solution_bytes", len(solutionText)))

	if verifier.VerifySolution(ctx, problemText, solutionText) {
		fmt.Println("SOLVED: goal is derivable")
		return nil
	}
	fmt.Println("UNSOLVED: goal is not derivable")
	os.Exit(1)
	return nil
}
