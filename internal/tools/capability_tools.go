// Capability listing tool. The loop nudges the model to call this
// before describing what it can or cannot do, so capability answers are
// grounded in the actual gated catalog instead of assumption.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// RegisterCapabilityTool adds list_capabilities. It reads the registry
// itself, so register it last to keep the listing complete.
func (r *Registry) RegisterCapabilityTool() {
	r.Register(&Tool{
		Name:        "list_capabilities",
		Description: "List every tool currently available to you, with descriptions. Call this before answering questions about what you can or cannot do.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			caller := CallerFromContext(ctx)
			decls := r.Declarations(caller.Caps)

			var sb strings.Builder
			fmt.Fprintf(&sb, "Available tools (%d):\n", len(decls))
			for _, d := range decls {
				fmt.Fprintf(&sb, "- %s: %s\n", d.Name, d.Description)
			}
			if !caller.Caps.MailLinked {
				sb.WriteString("\nNo mail account is linked, so mail tools are not available.")
			}
			return strings.TrimSpace(sb.String()), nil
		},
	})
}
