package verify

import (
	"context"
	"strings"
	"testing"

	"geoverify/internal/rules"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const orthocenterProblem = "a b c = triangle a b c; d = on_tline d b a c, on_tline d c a b ? perp a d b c"
const orthocenterAux = "e = on_line e a c, on_line e b d"

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	return NewVerifier(rules.MustLoadDefault(), DefaultParams())
}

func TestVerifyProofOrthocenter(t *testing.T) {
	v := newTestVerifier(t)

	r := v.VerifyProof(context.Background(), orthocenterProblem, orthocenterAux)
	if !r.IsValid {
		t.Fatalf("VerifyProof() = %s, want valid", r)
	}
	if r.StepsPassed != 1 || !r.GoalReached {
		t.Errorf("VerifyProof() = %s, want 1 step passed and goal reached", r)
	}
}

func TestVerifyProofConstructionSteps(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c ? perp a d b c"
	proof := "d = on_tline d b a c, on_tline d c a b; e = on_line e a c, on_line e b d"

	r := v.VerifyProof(context.Background(), prob, proof)
	if !r.IsValid || !r.GoalReached {
		t.Fatalf("VerifyProof() = %s, want valid with goal reached", r)
	}
	if r.StepsPassed != 2 {
		t.Errorf("StepsPassed = %d, want 2", r.StepsPassed)
	}
}

func TestVerifyProofSecondStepFails(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c ? perp a d b c"
	proof := "d = on_tline d b a c, on_tline d c a b; cong a b c d"

	r := v.VerifyProof(context.Background(), prob, proof)
	if r.IsValid || r.GoalReached {
		t.Fatalf("VerifyProof() = %s, want invalid", r)
	}
	if r.StepsPassed != 1 {
		t.Errorf("StepsPassed = %d, want 1", r.StepsPassed)
	}
	if !strings.Contains(r.ErrorMessage, "step 2 (") {
		t.Errorf("ErrorMessage = %q, want the second step named", r.ErrorMessage)
	}
}

func TestVerifyProofMidline(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c; m = midpoint m a b; n = midpoint n a c ? para m n b c"
	proof := "x = midpoint x b c; para m n b c"

	r := v.VerifyProof(context.Background(), prob, proof)
	if !r.IsValid {
		t.Fatalf("VerifyProof() = %s, want valid", r)
	}
	if r.StepsPassed != 2 {
		t.Errorf("StepsPassed = %d, want 2", r.StepsPassed)
	}
}

func TestVerifyProofLogicGap(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c ? cong a b a c"

	r := v.VerifyProof(context.Background(), prob, "cong a b a c")
	if r.IsValid {
		t.Fatalf("VerifyProof() = %s, want invalid", r)
	}
	if r.StepsPassed != 0 {
		t.Errorf("StepsPassed = %d, want 0", r.StepsPassed)
	}
	if !strings.Contains(r.ErrorMessage, "logic gap") {
		t.Errorf("ErrorMessage = %q, want a logic gap", r.ErrorMessage)
	}
	if !strings.Contains(r.ErrorMessage, "step 1 (") {
		t.Errorf("ErrorMessage = %q, want the first step named as step 1", r.ErrorMessage)
	}
}

func TestVerifyProofGoalNotReached(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c ? cong a b a c"

	// The step is a fine construction, but the goal does not follow.
	r := v.VerifyProof(context.Background(), prob, "m = midpoint m a b")
	if r.IsValid {
		t.Fatalf("VerifyProof() = %s, want invalid", r)
	}
	if r.StepsPassed != 1 {
		t.Errorf("StepsPassed = %d, want 1", r.StepsPassed)
	}
	if !strings.Contains(r.ErrorMessage, "not reached") {
		t.Errorf("ErrorMessage = %q, want goal-not-reached", r.ErrorMessage)
	}
}

func TestVerifyProofNoGoal(t *testing.T) {
	v := newTestVerifier(t)
	prob := "a b c = triangle a b c; m = midpoint m a b; n = midpoint n a c"

	r := v.VerifyProof(context.Background(), prob, "para m n b c")
	if !r.IsValid || !r.GoalReached {
		t.Fatalf("VerifyProof() = %s, want valid with no goal", r)
	}
	if r.ErrorMessage != "no global goal specified" {
		t.Errorf("ErrorMessage = %q", r.ErrorMessage)
	}
}

func TestVerifyProofEmptyProof(t *testing.T) {
	v := newTestVerifier(t)

	r := v.VerifyProof(context.Background(), orthocenterProblem, "  \n ")
	if r.IsValid || r.StepsPassed != 0 {
		t.Fatalf("VerifyProof() = %s, want invalid with 0 steps", r)
	}
	if r.ErrorMessage != "no proof steps provided" {
		t.Errorf("ErrorMessage = %q", r.ErrorMessage)
	}
}

func TestVerifyProofInvalidProblem(t *testing.T) {
	v := newTestVerifier(t)

	r := v.VerifyProof(context.Background(), "a a = segment a a ? coll a a a", "coll a a a")
	if r.IsValid {
		t.Fatalf("VerifyProof() = %s, want invalid", r)
	}
	if !strings.Contains(r.ErrorMessage, "invalid problem") {
		t.Errorf("ErrorMessage = %q, want invalid problem", r.ErrorMessage)
	}
}

func TestVerifySolution(t *testing.T) {
	v := newTestVerifier(t)
	ctx := context.Background()

	if !v.VerifySolution(ctx, orthocenterProblem, orthocenterAux) {
		t.Error("VerifySolution() = false with the auxiliary point")
	}
	if v.VerifySolution(ctx, orthocenterProblem, "") {
		t.Error("VerifySolution() = true without the auxiliary point")
	}
	// A problem with no goal has nothing a construction could solve.
	if v.VerifySolution(ctx, "a b c = triangle a b c", "") {
		t.Error("VerifySolution() = true for a goal-less problem")
	}
}

// fakeCache records cache traffic in memory.
type fakeCache struct {
	proofs    map[string]*Report
	solutions map[string]bool
	hits      int
}

func newFakeCache() *fakeCache {
	return &fakeCache{proofs: make(map[string]*Report), solutions: make(map[string]bool)}
}

func (f *fakeCache) GetProof(key string) (*Report, bool) {
	r, ok := f.proofs[key]
	if ok {
		f.hits++
	}
	return r, ok
}

func (f *fakeCache) PutProof(key string, r *Report) { f.proofs[key] = r }

func (f *fakeCache) GetSolution(key string) (bool, bool) {
	v, ok := f.solutions[key]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *fakeCache) PutSolution(key string, verdict bool) { f.solutions[key] = verdict }

func TestVerifyProofCache(t *testing.T) {
	cache := newFakeCache()
	v := newTestVerifier(t).WithCache(cache)
	ctx := context.Background()
	prob := "a b c = triangle a b c; m = midpoint m a b; n = midpoint n a c ? para m n b c"

	r1 := v.VerifyProof(ctx, prob, "para m n b c")
	if !r1.IsValid {
		t.Fatalf("VerifyProof() = %s, want valid", r1)
	}
	if len(cache.proofs) != 1 {
		t.Fatalf("cache holds %d reports, want 1", len(cache.proofs))
	}

	r2 := v.VerifyProof(ctx, prob, "para m n b c")
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if r2.IsValid != r1.IsValid || r2.StepsPassed != r1.StepsPassed {
		t.Errorf("cached report %s differs from %s", r2, r1)
	}
}
