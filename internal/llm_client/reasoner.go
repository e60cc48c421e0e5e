package llm_client

import (
	"context"

	"rose/internal/contract"
)

// Reasoner adapts the active provider to the stage-facing reasoning-service
// boundary: one instruction plus an expected output schema in, raw JSON out.
type Reasoner struct{}

func (Reasoner) Invoke(ctx context.Context, instruction string, schema contract.Schema) ([]byte, error) {
	out, err := GenerateJSON(ctx, instruction, schema.JSON)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
