package metrics

import "time"

// CallMetrics covers one reasoning-service call attempt within a stage.
type CallMetrics struct {
	Stage      string    `json:"stage"`
	Iteration  int       `json:"iteration"`
	Attempt    int       `json:"attempt"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type MissionMetrics struct {
	MissionID     string        `json:"mission_id"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	DurationMs    int64         `json:"duration_ms"`
	Iterations    int           `json:"iterations"`
	TerminalState string        `json:"terminal_state"`
	Calls         []CallMetrics `json:"calls"`
}

// Compute derived fields once the mission is over.
func (m *MissionMetrics) Finalize() {
	m.End = time.Now()
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}
