package gateway

import (
	"fmt"
	"strings"

	"github.com/hupe1980/modepilot/core"
)

// RenderDecisionPrompt builds the instruction prompt for a DecideMode call.
// The closing instruction pins the reply to a single JSON object so
// ParseDecision can stay strict.
func RenderDecisionPrompt(req DecideRequest) string {
	var b strings.Builder

	b.WriteString("You assist a robot teleoperator by choosing the control mode for the operator's next input.\n\n")

	fmt.Fprintf(&b, "TASK:\n%s\n\n", strings.TrimSpace(req.Description))

	b.WriteString("AVAILABLE MODES:\n")
	for i, m := range req.Modes {
		fmt.Fprintf(&b, "%d. %q - %s\n", i+1, m.Name, m.Description)
	}

	if len(req.Rules) > 0 {
		b.WriteString("\nRULES LEARNED FROM PAST OPERATOR FEEDBACK:\n")
		for _, r := range req.Rules {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
	}

	if len(req.Examples) > 0 {
		b.WriteString("\nRECENT OPERATOR OUTCOMES (most recent first):\n")
		for _, ex := range req.Examples {
			b.WriteString("- " + formatExample(ex) + "\n")
		}
	}

	fmt.Fprintf(&b, "\nCURRENT SITUATION:\n%s\n", req.Live.String())

	fmt.Fprintf(&b, "\nRespond with ONLY a JSON object (no markdown, no explanation outside JSON):\n{\"mode\": \"<one of: %s>\", \"rationale\": \"<brief explanation>\"}",
		strings.Join(req.AllowedModes(), " | "))

	return b.String()
}

// RenderSummarizePrompt builds the instruction prompt for a
// SummarizeExamples call.
func RenderSummarizePrompt(req SummarizeRequest) string {
	var b strings.Builder

	b.WriteString("You maintain the decision heuristics of a robot teleoperation assistant. Distill the operator outcomes below into general, reusable rules for choosing a control mode.\n\n")

	fmt.Fprintf(&b, "TASK:\n%s\n\n", strings.TrimSpace(req.Description))

	b.WriteString("AVAILABLE MODES:\n")
	for i, m := range req.Modes {
		fmt.Fprintf(&b, "%d. %q - %s\n", i+1, m.Name, m.Description)
	}

	if len(req.Existing) > 0 {
		b.WriteString("\nEXISTING RULES (do not restate these):\n")
		for _, r := range req.Existing {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
	}

	b.WriteString("\nNEW OPERATOR OUTCOMES (oldest first):\n")
	for _, ex := range req.Examples {
		b.WriteString("- " + formatExample(ex) + "\n")
	}

	b.WriteString("\nWrite rules that generalize beyond the single situations above. Overrides matter most: they show where the current behavior was wrong.\n")
	b.WriteString("\nRespond with ONLY a JSON object (no markdown, no explanation outside JSON):\n{\"rules\": [{\"rule_text\": \"<one general heuristic>\"}]}")

	return b.String()
}

// formatExample renders one example as a single prompt line. Multi-line
// snapshot text is collapsed so list bullets stay aligned.
func formatExample(ex core.Example) string {
	situation := strings.ReplaceAll(ex.Snapshot.String(), "\n", "; ")
	if ex.IsOverride() {
		return fmt.Sprintf("situation: %s | proposed: %s | operator chose: %s", situation, ex.ProposedMode, ex.CorrectedMode)
	}
	return fmt.Sprintf("situation: %s | operator kept: %s", situation, ex.CorrectedMode)
}
