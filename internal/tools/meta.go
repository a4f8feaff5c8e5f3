package tools

import (
	"fmt"
	"strings"
)

// Meta-cognitive tools. Their declarations sit in the base catalog so
// every caller sees them, but the executor intercepts the calls before
// dispatch: think is a scratchpad, plan writes the run's step list, and
// reflect can end the run early with a revised answer.

const thinkAck = "Thought noted. Continue with the task."

// RegisterMetaTools adds think, plan, and reflect to the registry.
// Called first so the meta tools lead every declaration listing.
func (r *Registry) RegisterMetaTools() {
	r.Register(&Tool{
		Name:        "think",
		Description: "Write down intermediate reasoning before acting. Nothing is executed; use this as a scratchpad when a request needs working through.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thought": map[string]any{
					"type":        "string",
					"description": "The reasoning to record",
				},
			},
			"required": []string{"thought"},
		},
		Meta: true,
	})

	r.Register(&Tool{
		Name:        "plan",
		Description: "Record an ordered list of steps before executing a multi-step task. Call once, then work through the steps with other tools.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type":        "array",
					"description": "The ordered steps to perform",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []string{"steps"},
		},
		Meta: true,
	})

	r.Register(&Tool{
		Name:        "reflect",
		Description: "Critique your draft answer. If it holds up, report that it is satisfactory. If it needs changes, supply revised_answer with the corrected final text.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"critique": map[string]any{
					"type":        "string",
					"description": "Assessment of the draft answer",
				},
				"revised_answer": map[string]any{
					"type":        "string",
					"description": "Corrected final answer, only when the draft needs revision",
				},
			},
		},
		Meta: true,
	})
}

func execThink() Outcome {
	return Outcome{Result: thinkAck}
}

func execPlan(args map[string]any) Outcome {
	rawSteps, _ := args["steps"].([]any)
	var steps []string
	for _, s := range rawSteps {
		if str, ok := s.(string); ok && strings.TrimSpace(str) != "" {
			steps = append(steps, strings.TrimSpace(str))
		}
	}
	if len(steps) == 0 {
		return Outcome{Result: "Error: plan requires a non-empty steps array"}
	}

	var sb strings.Builder
	sb.WriteString("Plan recorded:\n")
	for i, s := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	sb.WriteString("Proceed with step 1 now.")
	return Outcome{Result: sb.String(), Plan: steps}
}

func execReflect(args map[string]any) Outcome {
	revised, _ := args["revised_answer"].(string)
	revised = strings.TrimSpace(revised)
	// Models sometimes send the literal string "null" for no revision.
	if revised == "" || strings.EqualFold(revised, "null") {
		return Outcome{Result: "Answer is satisfactory. Provide it as your final response."}
	}
	return Outcome{
		Result:  "Revised answer accepted.",
		IsFinal: true,
		Final:   revised,
	}
}
