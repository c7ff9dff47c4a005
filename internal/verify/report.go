// Package verify drives proof and solution checking: it owns the step
// state machine, the verified-context accumulator, and the final goal
// check. Every entry point fails closed; no error escapes as a panic or a
// raw error, only as a structured report.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Report is the structured outcome of a proof check. StepsPassed is the
// 0-based index of the first failing step, or the total step count on
// success; callers rely on it to localize the broken step.
type Report struct {
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message"`
	StepsPassed  int    `json:"steps_passed"`
	GoalReached  bool   `json:"goal_reached"`
}

func (r *Report) String() string {
	return fmt.Sprintf("valid=%v steps_passed=%d goal_reached=%v msg=%q",
		r.IsValid, r.StepsPassed, r.GoalReached, r.ErrorMessage)
}

// Params bounds the search effort per check.
type Params struct {
	// StepMaxLevel caps deepening for individual derivation steps. Small,
	// so a wrong step fails fast.
	StepMaxLevel int
	// GoalMaxLevel caps deepening for the final goal check and for whole
	// solution checks.
	GoalMaxLevel int
	// StepTimeout bounds each rule engine pass during step checks.
	StepTimeout time.Duration
	// GoalTimeout bounds each rule engine pass during the goal check.
	GoalTimeout time.Duration
	// NumericCheck filters rule conclusions against the realization.
	NumericCheck bool
	// MaxParallel caps concurrent rule matchers per pass.
	MaxParallel int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		StepMaxLevel: 3,
		GoalMaxLevel: 12,
		StepTimeout:  30 * time.Second,
		GoalTimeout:  120 * time.Second,
		NumericCheck: true,
	}
}

// VerdictCache stores verdicts keyed by input hash. Implemented by the
// sqlite-backed store; nil disables caching.
type VerdictCache interface {
	GetProof(key string) (*Report, bool)
	PutProof(key string, r *Report)
	GetSolution(key string) (verdict, ok bool)
	PutSolution(key string, verdict bool)
}

// cacheKey builds the verdict cache key. The table hash is part of the
// key so edited rule tables never serve stale verdicts.
func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
