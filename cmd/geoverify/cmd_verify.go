package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyJSON bool

// verifyCmd checks a step-by-step proof against a problem
var verifyCmd = &cobra.Command{
	Use:   "verify [problem] [proof]",
	Short: "Verify a step-by-step proof against a problem",
	Long: `Checks every step of a proof in order, then checks the problem's goal.

Both arguments are file paths, "-" for stdin, or literal text.

Example:
  geoverify verify problem.txt proof.txt
  geoverify verify "a b c = triangle a b c ? cong a b a c" "cong a b a c"

Exit status is 0 when the proof is valid and 1 otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Emit the report as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	problemText, err := readInput(args[0])
	if err != nil {
		return err
	}
	proofText, err := readInput(args[1])
	if err != nil {
		return err
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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Verifying proof",
		zap.Int("problem_bytes", len(problemText)),
		zap.Int("proof_bytes", len(proofText)))

	report := verifier.VerifyProof(ctx, problemText, proofText)

	if verifyJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		if report.IsValid {
			fmt.Printf("VALID: %d step(s) passed, goal reached\n", report.StepsPassed)
			if report.ErrorMessage != "" {
				fmt.Printf("note: %s\n", report.ErrorMessage)
			}
		} else {
			fmt.Printf("INVALID after %d step(s): %s\n", report.StepsPassed, report.ErrorMessage)
		}
	}

	if !report.IsValid {
		os.Exit(1)
	}
	return nil
}
