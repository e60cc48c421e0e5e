package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rose/internal/contract"
	"rose/internal/mission"
	"rose/internal/orchestrator"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissionsFileObjectShape(t *testing.T) {
	path := writeFile(t, "missions.yaml", `
missions:
  - name: alpha
    prompt: "write a story"
    goal: "make it scary"
    max_iterations: 2
  - prompt: "write a pitch"
    goal: "make it persuasive"
`)

	specs, err := LoadMissionsFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, 2, specs[0].MaxIterations)
	assert.Equal(t, "batch:missions.yaml#2", specs[1].Name, "unnamed missions are auto-named")
}

func TestLoadMissionsFileBareList(t *testing.T) {
	path := writeFile(t, "bare.yaml", `
- name: solo
  prompt: "p"
  goal: "g"
`)

	specs, err := LoadMissionsFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "solo", specs[0].Name)
}

func TestLoadMissionsFileErrors(t *testing.T) {
	_, err := LoadMissionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "just a string\n")
	_, err = LoadMissionsFile(path)
	assert.Error(t, err)
}

func TestSelectByNames(t *testing.T) {
	specs := []MissionSpec{{Name: "alpha"}, {Name: "beta"}, {Name: "gamma"}}

	selected, missing := SelectByNames(specs, []string{"GAMMA", "alpha", "delta"})
	require.Len(t, selected, 2)
	assert.Equal(t, "gamma", selected[0].Name, "selection keeps the requested order")
	assert.Equal(t, "alpha", selected[1].Name)
	assert.Equal(t, []string{"delta"}, missing)

	all, missing := SelectByNames(specs, nil)
	assert.Len(t, all, 3)
	assert.Empty(t, missing)
}

// happyService drives every mission to success on the first iteration.
type happyService struct {
	invocations atomic.Int64
}

func (s *happyService) Invoke(ctx context.Context, instruction string, schema contract.Schema) ([]byte, error) {
	s.invocations.Add(1)
	switch schema.Name {
	case "criteria":
		return []byte(`{"criteria": ["c1"]}`), nil
	case "plan":
		return []byte(`{"plan": ["s1"]}`), nil
	case "revised_text":
		return []byte(`{"new_prompt": "better"}`), nil
	case "evaluation":
		return []byte(`{"score": 9, "rationale": "good", "is_improvement_sufficient": true}`), nil
	}
	return nil, fmt.Errorf("unexpected schema %s", schema.Name)
}

func TestRunAll(t *testing.T) {
	specs := []MissionSpec{
		{Name: "a", Prompt: "p1", Goal: "g1"},
		{Name: "b", Prompt: "p2", Goal: "g2", MaxIterations: 2},
		{Name: "bad", Prompt: "", Goal: "g3"}, // rejected before refining
	}

	svc := &happyService{}
	outcomes := RunAll(context.Background(), svc, specs, 2, 3,
		orchestrator.WithStageTimeout(5*time.Second))

	require.Len(t, outcomes, 3)

	assert.Equal(t, mission.DoneSuccess, outcomes[0].Result.Phase)
	assert.Equal(t, "better", outcomes[0].Result.FinalPrompt)
	assert.NoError(t, outcomes[0].Err)
	assert.NotNil(t, outcomes[0].Metrics)

	assert.Equal(t, mission.DoneSuccess, outcomes[1].Result.Phase)

	assert.Error(t, outcomes[2].Err)
	assert.Equal(t, mission.DoneFailed, outcomes[2].Result.Phase)

	// Two successful missions, four stage calls each; the invalid one never
	// touched the service.
	assert.Equal(t, int64(8), svc.invocations.Load())
}
