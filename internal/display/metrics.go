package display

import (
	"fmt"
	"strings"

	"rose/internal/metrics"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Refinement metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (%s, %d iteration(s))\n",
		mm.DurationMs, mm.TerminalState, mm.Iterations))
	for _, c := range mm.Calls {
		status := "ok"
		if !c.Success {
			status = "err"
		}
		sb.WriteString(fmt.Sprintf("  • iter %d  %-10s attempt %d  %5d ms  [%s]\n",
			c.Iteration, c.Stage, c.Attempt, c.DurationMs, status))
	}
	return strings.TrimRight(sb.String(), "\n")
}
