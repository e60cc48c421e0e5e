package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rose/internal/contract"
	"rose/internal/llm_client"
	"rose/internal/mission"
)

// scriptedService replays canned responses per schema, recording every
// instruction. Responses are consumed in order; the last one repeats. An
// entry may be an error to inject a fault.
type scriptedService struct {
	mu           sync.Mutex
	responses    map[string][]any
	instructions map[string][]string
}

func newScriptedService() *scriptedService {
	return &scriptedService{
		responses:    make(map[string][]any),
		instructions: make(map[string][]string),
	}
}

func (s *scriptedService) on(schema string, entries ...any) *scriptedService {
	s.responses[schema] = append(s.responses[schema], entries...)
	return s
}

func (s *scriptedService) Invoke(ctx context.Context, instruction string, schema contract.Schema) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions[schema.Name] = append(s.instructions[schema.Name], instruction)

	entries := s.responses[schema.Name]
	if len(entries) == 0 {
		return nil, fmt.Errorf("no scripted response for schema %s", schema.Name)
	}
	idx := len(s.instructions[schema.Name]) - 1
	if idx >= len(entries) {
		idx = len(entries) - 1
	}
	switch v := entries[idx].(type) {
	case error:
		return nil, v
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("bad scripted entry %T", v)
	}
}

func (s *scriptedService) callCount(schema string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instructions[schema])
}

func criteriaJSON() string {
	return `{"criteria": ["name the company", "include the balance sheet"]}`
}

func planJSON() string {
	return `{"plan": ["add the company name"]}`
}

func revisedJSON(n int) string {
	return fmt.Sprintf(`{"new_prompt": "revision %d"}`, n)
}

func evalJSON(score int, sufficient bool) string {
	return fmt.Sprintf(`{"score": %d, "rationale": "rationale for score %d", "is_improvement_sufficient": %v}`, score, score, sufficient)
}

func newTestState(t *testing.T, maxIterations int) *mission.State {
	t.Helper()
	st, err := mission.NewState("initial prompt", "the goal", maxIterations)
	require.NoError(t, err)
	return st
}

func fastRetries() Option {
	return WithRetryPolicy(RetryPolicy{SchemaRetries: 2, ServiceRetries: 3, Backoff: time.Millisecond})
}

func TestExhaustionTerminates(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1), revisedJSON(2), revisedJSON(3)).
		on("evaluation", evalJSON(5, false)) // never sufficient

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, mission.DoneExhausted, res.Phase)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, svc.callCount("revised_text"), "iteration count must equal Generate calls")
	assert.Equal(t, 1, svc.callCount("criteria"), "Decompose must run exactly once")
	assert.Equal(t, "revision 3", res.FinalPrompt, "best-so-far prompt is still reported")
	require.NotNil(t, res.Evaluation)
	assert.False(t, res.Evaluation.Sufficient)
}

func TestEarlySuccess(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(9, true))

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, mission.DoneSuccess, res.Phase)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, "revision 1", res.FinalPrompt)
	assert.Equal(t, 9, res.Evaluation.Score)
}

func TestSufficientOnFinalIterationReportsExhausted(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(9, true))

	st := newTestState(t, 1)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	// Exhaustion is authoritative for how the loop ended; the evaluation
	// still says whether it succeeded.
	assert.Equal(t, mission.DoneExhausted, res.Phase)
	assert.True(t, res.Evaluation.Sufficient)
	assert.Equal(t, 1, res.Iterations)
}

func TestFeedbackThreading(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(4, false), evalJSON(8, true))

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mission.DoneSuccess, res.Phase)
	assert.Equal(t, 2, res.Iterations)

	strategizeCalls := svc.instructions["plan"]
	require.Len(t, strategizeCalls, 2)
	assert.Contains(t, strategizeCalls[0], "N/A", "first Strategize has no feedback")
	assert.Contains(t, strategizeCalls[1], "rationale for score 4",
		"second Strategize must carry the first Evaluate's rationale")
	assert.NotContains(t, strategizeCalls[1], "N/A")
}

func TestSchemaFaultEscalatesToMissionFailure(t *testing.T) {
	svc := newScriptedService().
		on("criteria", `{"checklist": ["wrong shape"]}`) // missing 'criteria', always

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.Error(t, err)

	var mf *MissionFailure
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "Decompose", mf.Stage)

	var serr *contract.SchemaError
	assert.ErrorAs(t, err, &serr, "the last schema error is preserved for diagnostics")

	assert.Equal(t, mission.DoneFailed, res.Phase)
	assert.Empty(t, res.FinalPrompt, "no prompt is claimed as final on DONE_FAILED")
	assert.Equal(t, 3, svc.callCount("criteria"), "initial call plus two schema retries")
}

func TestServiceFaultRetriedWithBackoff(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", &llm_client.ServiceError{Backend: "test", Err: errors.New("rate limited")}, planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(9, true))

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mission.DoneSuccess, res.Phase)
	assert.Equal(t, 2, svc.callCount("plan"), "transient service fault retried once")
}

func TestServiceFaultEscalatesWhenExhausted(t *testing.T) {
	boom := &llm_client.ServiceError{Backend: "test", Err: errors.New("connection refused")}
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", boom)

	st := newTestState(t, 3)
	m := New(svc, st, WithRetryPolicy(RetryPolicy{SchemaRetries: 2, ServiceRetries: 1, Backoff: time.Millisecond}))

	res, err := m.Run(context.Background())
	require.Error(t, err)

	var mf *MissionFailure
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "Strategize", mf.Stage)
	assert.Equal(t, mission.DoneFailed, res.Phase)
	assert.Equal(t, 2, svc.callCount("plan"))
}

func TestTerminalStatesAbsorb(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(9, true))

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, mission.DoneSuccess, res.Phase)

	generateCalls := svc.callCount("revised_text")
	for i := 0; i < 3; i++ {
		phase, stepErr := m.Step(context.Background())
		assert.Equal(t, mission.DoneSuccess, phase)
		assert.NoError(t, stepErr)
	}
	assert.Equal(t, generateCalls, svc.callCount("revised_text"), "stepping a terminal machine must not invoke the service")
	assert.Equal(t, res, m.Result())
}

func TestFailedTerminalAbsorbsWithSameError(t *testing.T) {
	svc := newScriptedService().
		on("criteria", `not json`)

	st := newTestState(t, 3)
	m := New(svc, st, fastRetries())

	_, err := m.Run(context.Background())
	require.Error(t, err)

	phase, stepErr := m.Step(context.Background())
	assert.Equal(t, mission.DoneFailed, phase)
	assert.Equal(t, err, stepErr)
}

func TestCancellationDiscardsPartialResults(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(5, false))

	st := newTestState(t, 10)
	m := New(svc, st, fastRetries())

	ctx, cancel := context.WithCancel(context.Background())

	// Decompose, then cancel between stages.
	_, err := m.Step(ctx)
	require.NoError(t, err)
	cancel()

	_, err = m.Step(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, mission.DoneFailed, m.Phase())
	assert.Nil(t, st.RevisionPlan, "no partial data may reach the state record")
}

func TestDecide(t *testing.T) {
	eval := func(sufficient bool) *contract.Evaluation {
		return &contract.Evaluation{Score: 8, Rationale: "r", Sufficient: sufficient}
	}

	testCases := []struct {
		name     string
		st       mission.State
		expected mission.Phase
	}{
		{
			name:     "Insufficient with budget left keeps refining",
			st:       mission.State{Iterations: 1, MaxIterations: 3, LastEvaluation: eval(false)},
			expected: mission.PhaseRefining,
		},
		{
			name:     "Sufficient with budget left succeeds",
			st:       mission.State{Iterations: 1, MaxIterations: 3, LastEvaluation: eval(true)},
			expected: mission.DoneSuccess,
		},
		{
			name:     "Exhaustion wins over sufficiency",
			st:       mission.State{Iterations: 3, MaxIterations: 3, LastEvaluation: eval(true)},
			expected: mission.DoneExhausted,
		},
		{
			name:     "Exhaustion with insufficient evaluation",
			st:       mission.State{Iterations: 3, MaxIterations: 3, LastEvaluation: eval(false)},
			expected: mission.DoneExhausted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := tc.st
			assert.Equal(t, tc.expected, Decide(&st))
		})
	}
}

func TestMetricsRecorded(t *testing.T) {
	svc := newScriptedService().
		on("criteria", criteriaJSON()).
		on("plan", planJSON()).
		on("revised_text", revisedJSON(1)).
		on("evaluation", evalJSON(9, true))

	var events []ProgressEvent
	st := newTestState(t, 3)
	m := New(svc, st, fastRetries(), WithMissionID("abc123"),
		WithProgress(func(ev ProgressEvent) { events = append(events, ev) }))

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	mm := m.Metrics()
	assert.Equal(t, "abc123", mm.MissionID)
	assert.Equal(t, string(mission.DoneSuccess), mm.TerminalState)
	assert.Equal(t, 1, mm.Iterations)
	assert.Len(t, mm.Calls, 4, "Decompose + one loop of Strategize/Generate/Evaluate")

	var stages []string
	for _, ev := range events {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []string{"Decompose", "Strategize", "Generate", "Evaluate"}, stages)
}
