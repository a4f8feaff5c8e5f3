// Note tools: durable key/value memory about the caller, backed by the
// fact store.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hollis/valet/internal/facts"
)

// FactStore is the persistence surface the note tools need.
type FactStore interface {
	Upsert(ctx context.Context, callerID, key, value string) error
	All(ctx context.Context, callerID string) (map[string]string, error)
	Delete(ctx context.Context, callerID, key string) error
}

// RegisterNoteTools adds remember_fact, list_facts, and forget_fact.
func (r *Registry) RegisterNoteTools(store FactStore) {
	r.Register(&Tool{
		Name:        "remember_fact",
		Description: "Store a durable fact about the user for future conversations. Keys are snake_case identifiers.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "snake_case identifier, e.g. favorite_color",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "The fact, under 200 characters",
				},
			},
			"required": []string{"key", "value"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			key, _ := args["key"].(string)
			value, _ := args["value"].(string)
			if key == "" || value == "" {
				return "", fmt.Errorf("key and value are required")
			}
			// Stored facts are replayed into future system prompts, so
			// model-supplied values go through the same gate as extracted ones.
			fact, ok := facts.Sanitize(key, value)
			if !ok {
				return "That fact was not stored. Keys must be snake_case and values short plain statements.", nil
			}
			caller := CallerFromContext(ctx)
			if err := store.Upsert(ctx, caller.ID, fact.Key, fact.Value); err != nil {
				return "", fmt.Errorf("store fact: %w", err)
			}
			return fmt.Sprintf("Remembered %s.", fact.Key), nil
		},
	})

	r.Register(&Tool{
		Name:        "list_facts",
		Description: "List everything currently remembered about the user.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			caller := CallerFromContext(ctx)
			known, err := store.All(ctx, caller.ID)
			if err != nil {
				return "", fmt.Errorf("load facts: %w", err)
			}
			if len(known) == 0 {
				return "Nothing is remembered yet.", nil
			}

			keys := make([]string, 0, len(known))
			for k := range known {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var sb strings.Builder
			for _, k := range keys {
				fmt.Fprintf(&sb, "- %s: %s\n", k, known[k])
			}
			return strings.TrimSpace(sb.String()), nil
		},
	})

	r.Register(&Tool{
		Name:        "forget_fact",
		Description: "Delete a remembered fact by key.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "The fact key to delete",
				},
			},
			"required": []string{"key"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			key, _ := args["key"].(string)
			if key == "" {
				return "", fmt.Errorf("key is required")
			}
			caller := CallerFromContext(ctx)
			if err := store.Delete(ctx, caller.ID, key); err != nil {
				return "", fmt.Errorf("delete fact: %w", err)
			}
			return fmt.Sprintf("Forgot %s.", key), nil
		},
	})
}
