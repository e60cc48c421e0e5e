// Package stage holds the four refinement steps. Each step is a pure
// function of the mission state and the reasoning service: it renders one
// instruction, validates the response against its schema, and returns a
// state delta for the orchestrator to apply. Stages never mutate state.
package stage

import (
	"context"

	"rose/internal/contract"
	"rose/internal/mission"
)

// Service is the reasoning-service boundary: one rendered instruction plus
// the expected output schema in, raw structured payload out.
type Service interface {
	Invoke(ctx context.Context, instruction string, schema contract.Schema) ([]byte, error)
}

const (
	NameDecompose  = "Decompose"
	NameStrategize = "Strategize"
	NameGenerate   = "Generate"
	NameEvaluate   = "Evaluate"
)

// Decompose turns the user's goal into the criteria checklist. Runs exactly
// once per mission, before the refinement loop; the criteria anchor every
// later Evaluate call.
func Decompose(ctx context.Context, svc Service, st *mission.State) (mission.Delta, error) {
	raw, err := svc.Invoke(ctx, buildDecomposePrompt(st.InitialPrompt, st.Goal), contract.CriteriaSchema)
	if err != nil {
		return mission.Delta{}, err
	}
	res, err := contract.ParseCriteria(raw)
	if err != nil {
		return mission.Delta{}, err
	}
	return mission.Delta{Criteria: res.Criteria, CurrentPrompt: st.InitialPrompt}, nil
}

// Strategize asks for an ordered revision plan, injecting the previous
// evaluation's rationale so each cycle responds to the last cycle's
// shortfall rather than resampling blindly.
func Strategize(ctx context.Context, svc Service, st *mission.State) (mission.Delta, error) {
	raw, err := svc.Invoke(ctx, buildStrategizePrompt(st.CurrentPrompt, st.Criteria, st.LastEvaluation), contract.PlanSchema)
	if err != nil {
		return mission.Delta{}, err
	}
	res, err := contract.ParsePlan(raw)
	if err != nil {
		return mission.Delta{}, err
	}
	return mission.Delta{RevisionPlan: res.Plan}, nil
}

// Generate executes the revision plan and produces the next candidate
// prompt. The iteration counter advances here: it counts attempts to
// produce, not evaluations performed.
func Generate(ctx context.Context, svc Service, st *mission.State) (mission.Delta, error) {
	raw, err := svc.Invoke(ctx, buildGeneratePrompt(st.CurrentPrompt, st.RevisionPlan), contract.RevisedTextSchema)
	if err != nil {
		return mission.Delta{}, err
	}
	res, err := contract.ParseRevisedText(raw)
	if err != nil {
		return mission.Delta{}, err
	}
	return mission.Delta{
		CurrentPrompt:    res.NewPrompt,
		ConsumePlan:      true,
		AdvanceIteration: true,
	}, nil
}

// Evaluate scores the candidate against every criterion, relative to the
// initial prompt so quality cannot drift against a weakening baseline.
func Evaluate(ctx context.Context, svc Service, st *mission.State) (mission.Delta, error) {
	raw, err := svc.Invoke(ctx, buildEvaluatePrompt(st.InitialPrompt, st.CurrentPrompt, st.Criteria), contract.EvaluationSchema)
	if err != nil {
		return mission.Delta{}, err
	}
	res, err := contract.ParseEvaluation(raw)
	if err != nil {
		return mission.Delta{}, err
	}
	return mission.Delta{Evaluation: res}, nil
}
