package stage

import (
	"fmt"
	"strings"

	"rose/internal/contract"
)

func writeChecklist(sb *strings.Builder, criteria []string) {
	for i, c := range criteria {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
	}
}

func buildDecomposePrompt(initialPrompt, goal string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert prompt engineer and a meticulous project manager. Your task is to decompose a user's high-level goal for a prompt into a list of specific, actionable, and verifiable criteria. These criteria will serve as a checklist to guide the prompt's revision and to evaluate the final result.\n")
	sb.WriteString("Respond ONLY with a JSON object containing a single key \"criteria\", a list of strings. Each string must be a distinct, clear, and actionable instruction.\n\n")

	sb.WriteString(fmt.Sprintf("USER'S INITIAL PROMPT:\n\"%s\"\n\n", initialPrompt))
	sb.WriteString(fmt.Sprintf("USER'S GOAL:\n\"%s\"\n\n", goal))

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Focus on what needs to be added, removed, or changed in the prompt to meet the goal.\n")
	sb.WriteString("2. Make each criterion concrete. Instead of \"make it more creative\", prefer \"Add a constraint that the story must be told from the perspective of an inanimate object\".\n")
	sb.WriteString("3. Ensure the criteria directly address the user's goal.\n")

	return sb.String()
}

func buildStrategizePrompt(currentPrompt string, criteria []string, lastEval *contract.Evaluation) string {
	var sb strings.Builder

	sb.WriteString("You are a master prompt strategist. Your job is to create a clear, step-by-step plan to revise a prompt based on a set of improvement criteria. You are not writing the new prompt yet, only the plan to do so.\n")
	sb.WriteString("Respond ONLY with a JSON object containing a single key \"plan\", an ordered list of revision steps as strings.\n\n")

	sb.WriteString(fmt.Sprintf("THE CURRENT PROMPT:\n\"%s\"\n\n", currentPrompt))

	sb.WriteString("IMPROVEMENT CRITERIA CHECKLIST:\n")
	writeChecklist(&sb, criteria)
	sb.WriteString("\n")

	sb.WriteString("PREVIOUS EVALUATION FEEDBACK:\n")
	if lastEval != nil {
		sb.WriteString(fmt.Sprintf("Score %d/10. %s\n\n", lastEval.Score, lastEval.Rationale))
	} else {
		sb.WriteString("N/A\n\n")
	}

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Review the current prompt and the criteria.\n")
	sb.WriteString("2. If there is previous feedback, prioritize addressing the points of failure first.\n")
	sb.WriteString("3. Create a concise, step-by-step plan of action for the revision.\n")

	return sb.String()
}

func buildGeneratePrompt(currentPrompt string, plan []string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert AI prompt writer. Your task is to execute a revision plan to create a new, improved version of a prompt. Follow the plan precisely.\n")
	sb.WriteString("Respond ONLY with a JSON object containing a single key \"new_prompt\", the full text of the newly generated prompt. Do not include any explanation or preamble.\n\n")

	sb.WriteString(fmt.Sprintf("THE CURRENT PROMPT:\n\"%s\"\n\n", currentPrompt))

	sb.WriteString("THE REVISION PLAN:\n")
	writeChecklist(&sb, plan)
	sb.WriteString("\n")

	sb.WriteString("Carefully implement each step of the plan and emit only the new prompt text.\n")

	return sb.String()
}

func buildEvaluatePrompt(initialPrompt, currentPrompt string, criteria []string) string {
	var sb strings.Builder

	sb.WriteString("You are a meticulous Quality Assurance analyst for AI prompts. Your task is to evaluate a revised prompt against the original prompt based on a specific set of criteria. Be objective and critical.\n")
	sb.WriteString("Respond ONLY with a JSON object with keys \"score\" (integer 1-10), \"rationale\" (string), and \"is_improvement_sufficient\" (boolean).\n\n")

	sb.WriteString(fmt.Sprintf("THE ORIGINAL PROMPT:\n\"%s\"\n\n", initialPrompt))
	sb.WriteString(fmt.Sprintf("THE NEWLY REVISED PROMPT:\n\"%s\"\n\n", currentPrompt))

	sb.WriteString("IMPROVEMENT CRITERIA CHECKLIST:\n")
	writeChecklist(&sb, criteria)
	sb.WriteString("\n")

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. For each criterion in the checklist, assess whether the revised prompt meets it, judging against the ORIGINAL prompt above.\n")
	sb.WriteString("2. Give an overall score from 1 (no improvement) to 10 (perfectly met all criteria).\n")
	sb.WriteString("3. Write a brief, honest rationale explaining what was done well and what is still missing.\n")
	sb.WriteString("4. Set is_improvement_sufficient to true only if the score is 8 or higher.\n")

	return sb.String()
}
