package display

import (
	"fmt"
	"strings"

	"rose/internal/mission"
	"rose/internal/supervisor"
)

const maxInlinePromptLength = 400

// FormatMissionResult renders the final report for one mission. On
// DONE_EXHAUSTED the prompt is labeled best-so-far; on DONE_FAILED only the
// diagnostic is shown.
func FormatMissionResult(r *supervisor.MissionResult) string {
	var sb strings.Builder
	sb.WriteString("=====================================\n")
	sb.WriteString(fmt.Sprintf("Mission %s — %s\n", r.MissionID, r.TerminalState))
	sb.WriteString("=====================================\n")
	sb.WriteString(fmt.Sprintf("Initial Prompt: %q\n", truncate(r.InitialPrompt)))
	sb.WriteString(fmt.Sprintf("Goal: %q\n", truncate(r.Goal)))

	switch r.TerminalState {
	case string(mission.DoneFailed):
		sb.WriteString(fmt.Sprintf("No final prompt produced. Error: %s\n", r.Error))
	case string(mission.DoneExhausted):
		sb.WriteString(fmt.Sprintf("Best-so-far Prompt (NOT guaranteed sufficient, all %d iteration(s) used):\n%q\n",
			r.Iterations, r.FinalPrompt))
		sb.WriteString(formatEvaluation(r))
	default:
		sb.WriteString(fmt.Sprintf("Final Improved Prompt (%d iteration(s)):\n%q\n", r.Iterations, r.FinalPrompt))
		sb.WriteString(formatEvaluation(r))
	}
	sb.WriteString("=====================================")
	return sb.String()
}

func formatEvaluation(r *supervisor.MissionResult) string {
	if r.Evaluation == nil {
		return "No evaluation recorded.\n"
	}
	var sb strings.Builder
	sb.WriteString("Final Evaluation:\n")
	sb.WriteString(fmt.Sprintf("  - Score: %d/10\n", r.Evaluation.Score))
	sb.WriteString(fmt.Sprintf("  - Rationale: %s\n", r.Evaluation.Rationale))
	sb.WriteString(fmt.Sprintf("  - Improvement Sufficient: %v\n", r.Evaluation.Sufficient))
	return sb.String()
}

// FormatCriteria renders the decomposed checklist for logs and previews.
func FormatCriteria(criteria []string) string {
	var sb strings.Builder
	sb.WriteString("Improvement criteria:\n")
	for i, c := range criteria {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, c))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxInlinePromptLength {
		return s[:maxInlinePromptLength] + "..."
	}
	return s
}
