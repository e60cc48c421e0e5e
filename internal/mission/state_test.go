package mission

import (
	"testing"

	"rose/internal/contract"
)

func TestNewState(t *testing.T) {
	testCases := []struct {
		name          string
		prompt        string
		goal          string
		maxIterations int
		expectError   bool
	}{
		{name: "Valid inputs", prompt: "write a story", goal: "make it scary", maxIterations: 3},
		{name: "Single iteration allowed", prompt: "p", goal: "g", maxIterations: 1},
		{name: "Empty prompt", prompt: "  ", goal: "g", maxIterations: 3, expectError: true},
		{name: "Empty goal", prompt: "p", goal: "", maxIterations: 3, expectError: true},
		{name: "Zero iterations", prompt: "p", goal: "g", maxIterations: 0, expectError: true},
		{name: "Negative iterations", prompt: "p", goal: "g", maxIterations: -1, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := NewState(tc.prompt, tc.goal, tc.maxIterations)

			if tc.expectError {
				if err == nil {
					t.Error("Expected an error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Did not expect an error, but got: %v", err)
			}
			if st.CurrentPrompt != tc.prompt {
				t.Errorf("CurrentPrompt should start as the initial prompt, got %q", st.CurrentPrompt)
			}
			if st.Iterations != 0 {
				t.Errorf("Iterations should start at 0, got %d", st.Iterations)
			}
		})
	}
}

func TestApply(t *testing.T) {
	st, err := NewState("initial", "goal", 3)
	if err != nil {
		t.Fatal(err)
	}

	st.Apply(Delta{Criteria: []string{"c1", "c2"}, CurrentPrompt: "initial"})
	if len(st.Criteria) != 2 {
		t.Fatalf("Expected 2 criteria, got %d", len(st.Criteria))
	}

	st.Apply(Delta{RevisionPlan: []string{"step 1"}})
	if len(st.RevisionPlan) != 1 {
		t.Fatal("Revision plan not applied")
	}

	st.Apply(Delta{CurrentPrompt: "revised", ConsumePlan: true, AdvanceIteration: true})
	if st.CurrentPrompt != "revised" {
		t.Errorf("Expected current prompt 'revised', got %q", st.CurrentPrompt)
	}
	if st.RevisionPlan != nil {
		t.Error("Plan should be discarded once consumed")
	}
	if st.Iterations != 1 {
		t.Errorf("Expected 1 iteration, got %d", st.Iterations)
	}

	eval := &contract.Evaluation{Score: 6, Rationale: "partial", Sufficient: false}
	st.Apply(Delta{Evaluation: eval})
	if st.LastEvaluation != eval {
		t.Error("Evaluation not applied")
	}

	// An empty delta must leave everything untouched.
	st.Apply(Delta{})
	if st.CurrentPrompt != "revised" || st.Iterations != 1 || len(st.Criteria) != 2 || st.LastEvaluation != eval {
		t.Error("Empty delta mutated state")
	}
}

func TestPhaseTerminal(t *testing.T) {
	if PhaseRefining.Terminal() {
		t.Error("REFINING must not be terminal")
	}
	for _, p := range []Phase{DoneSuccess, DoneExhausted, DoneFailed} {
		if !p.Terminal() {
			t.Errorf("%s must be terminal", p)
		}
	}
}
