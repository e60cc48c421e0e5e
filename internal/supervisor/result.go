package supervisor

import (
	"rose/internal/contract"
	"rose/internal/metrics"
)

type MissionResult struct {
	MissionID     string                  `json:"mission_id"`
	Name          string                  `json:"name,omitempty"`
	InitialPrompt string                  `json:"initial_prompt"`
	Goal          string                  `json:"goal"`
	FinalPrompt   string                  `json:"final_prompt,omitempty"`
	Evaluation    *contract.Evaluation    `json:"evaluation,omitempty"`
	Iterations    int                     `json:"iterations"`
	TerminalState string                  `json:"terminal_state"`
	Error         string                  `json:"error,omitempty"`
	Metrics       *metrics.MissionMetrics `json:"metrics,omitempty"`
}

// Global channel for all mission results.
var ResultChannel = make(chan MissionResult, 100)
