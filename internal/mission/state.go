package mission

import (
	"fmt"
	"strings"

	"rose/internal/contract"
)

// Phase is the refinement state machine's current state. The DONE_* phases
// are absorbing.
type Phase string

const (
	PhaseRefining Phase = "REFINING"
	DoneSuccess   Phase = "DONE_SUCCESS"
	DoneExhausted Phase = "DONE_EXHAUSTED"
	DoneFailed    Phase = "DONE_FAILED"
)

func (p Phase) Terminal() bool {
	return p == DoneSuccess || p == DoneExhausted || p == DoneFailed
}

// State is the single record threaded through a refinement run. Only the
// orchestrator mutates it, by applying stage deltas; stages receive it
// read-only and return a Delta.
type State struct {
	InitialPrompt string
	Goal          string

	Criteria       []string
	CurrentPrompt  string
	RevisionPlan   []string
	LastEvaluation *contract.Evaluation

	Iterations    int
	MaxIterations int
}

func NewState(initialPrompt, goal string, maxIterations int) (*State, error) {
	if strings.TrimSpace(initialPrompt) == "" {
		return nil, fmt.Errorf("initial prompt must not be empty")
	}
	if strings.TrimSpace(goal) == "" {
		return nil, fmt.Errorf("goal must not be empty")
	}
	if maxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be >= 1, got %d", maxIterations)
	}
	return &State{
		InitialPrompt: initialPrompt,
		Goal:          goal,
		CurrentPrompt: initialPrompt,
		MaxIterations: maxIterations,
	}, nil
}

// Delta is the only way stage output reaches the state. Zero-value fields
// leave the corresponding state field untouched.
type Delta struct {
	Criteria         []string
	CurrentPrompt    string
	RevisionPlan     []string
	ConsumePlan      bool
	Evaluation       *contract.Evaluation
	AdvanceIteration bool
}

func (s *State) Apply(d Delta) {
	if len(d.Criteria) > 0 {
		s.Criteria = d.Criteria
	}
	if d.CurrentPrompt != "" {
		s.CurrentPrompt = d.CurrentPrompt
	}
	if len(d.RevisionPlan) > 0 {
		s.RevisionPlan = d.RevisionPlan
	}
	if d.ConsumePlan {
		s.RevisionPlan = nil
	}
	if d.Evaluation != nil {
		s.LastEvaluation = d.Evaluation
	}
	if d.AdvanceIteration {
		s.Iterations++
	}
}

// Result is what a finished mission hands back to the caller. On DONE_FAILED
// no prompt is claimed as authoritative and FinalPrompt is empty.
type Result struct {
	FinalPrompt string
	Evaluation  *contract.Evaluation
	Iterations  int
	Phase       Phase
}
