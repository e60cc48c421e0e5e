package contract

import (
	"encoding/json"
	"fmt"
)

// SchemaError reports a structurally invalid reasoning-service payload. The
// raw response is kept for diagnostics; it is never coerced into a result.
type SchemaError struct {
	Schema string
	Reason string
	Raw    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s\nRaw Response: %s", e.Schema, e.Reason, e.Raw)
}

// Schema names an expected output shape and carries the JSON schema handed to
// backends that can constrain generation. Validation still happens locally in
// the Parse functions regardless of backend support.
type Schema struct {
	Name string
	JSON map[string]any
}

var (
	CriteriaSchema = Schema{
		Name: "criteria",
		JSON: objectSchema(map[string]any{
			"criteria": stringListSchema(),
		}, "criteria"),
	}
	PlanSchema = Schema{
		Name: "plan",
		JSON: objectSchema(map[string]any{
			"plan": stringListSchema(),
		}, "plan"),
	}
	RevisedTextSchema = Schema{
		Name: "revised_text",
		JSON: objectSchema(map[string]any{
			"new_prompt": map[string]any{"type": "string", "minLength": 1},
		}, "new_prompt"),
	}
	EvaluationSchema = Schema{
		Name: "evaluation",
		JSON: objectSchema(map[string]any{
			"score":                     map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"rationale":                 map[string]any{"type": "string"},
			"is_improvement_sufficient": map[string]any{"type": "boolean"},
		}, "score", "rationale", "is_improvement_sufficient"),
	}
)

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringListSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "string", "minLength": 1},
		"minItems": 1,
	}
}

type Criteria struct {
	Criteria []string `json:"criteria"`
}

type Plan struct {
	Plan []string `json:"plan"`
}

type RevisedText struct {
	NewPrompt string `json:"new_prompt"`
}

type Evaluation struct {
	Score      int    `json:"score"`
	Rationale  string `json:"rationale"`
	Sufficient bool   `json:"is_improvement_sufficient"`
}

// decode unmarshals raw into a generic map so that missing keys, wrong types
// and out-of-range values can each be reported precisely.
func decode(schema string, raw []byte) (map[string]any, *SchemaError) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &SchemaError{Schema: schema, Reason: fmt.Sprintf("malformed JSON: %v", err), Raw: string(raw)}
	}
	return m, nil
}

func ParseCriteria(raw []byte) (*Criteria, error) {
	m, serr := decode(CriteriaSchema.Name, raw)
	if serr != nil {
		return nil, serr
	}
	items, reason := stringListField(m, "criteria")
	if reason != "" {
		return nil, &SchemaError{Schema: CriteriaSchema.Name, Reason: reason, Raw: string(raw)}
	}
	return &Criteria{Criteria: items}, nil
}

func ParsePlan(raw []byte) (*Plan, error) {
	m, serr := decode(PlanSchema.Name, raw)
	if serr != nil {
		return nil, serr
	}
	items, reason := stringListField(m, "plan")
	if reason != "" {
		return nil, &SchemaError{Schema: PlanSchema.Name, Reason: reason, Raw: string(raw)}
	}
	return &Plan{Plan: items}, nil
}

func ParseRevisedText(raw []byte) (*RevisedText, error) {
	m, serr := decode(RevisedTextSchema.Name, raw)
	if serr != nil {
		return nil, serr
	}
	text, reason := stringField(m, "new_prompt")
	if reason != "" {
		return nil, &SchemaError{Schema: RevisedTextSchema.Name, Reason: reason, Raw: string(raw)}
	}
	return &RevisedText{NewPrompt: text}, nil
}

func ParseEvaluation(raw []byte) (*Evaluation, error) {
	m, serr := decode(EvaluationSchema.Name, raw)
	if serr != nil {
		return nil, serr
	}

	score, reason := intField(m, "score")
	if reason != "" {
		return nil, &SchemaError{Schema: EvaluationSchema.Name, Reason: reason, Raw: string(raw)}
	}
	if score < 1 || score > 10 {
		return nil, &SchemaError{
			Schema: EvaluationSchema.Name,
			Reason: fmt.Sprintf("key 'score' out of range [1,10]: %d", score),
			Raw:    string(raw),
		}
	}

	rationale, ok := m["rationale"].(string)
	if !ok {
		return nil, &SchemaError{Schema: EvaluationSchema.Name, Reason: "missing or non-string key 'rationale'", Raw: string(raw)}
	}

	sufficient, reason := boolField(m, "is_improvement_sufficient")
	if reason != "" {
		return nil, &SchemaError{Schema: EvaluationSchema.Name, Reason: reason, Raw: string(raw)}
	}

	return &Evaluation{Score: score, Rationale: rationale, Sufficient: sufficient}, nil
}
