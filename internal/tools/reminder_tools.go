// Reminder tools, backed by the scheduler.
package tools

import (
	"context"
	"fmt"
)

// ReminderService is the scheduler surface the reminder tools need.
type ReminderService interface {
	// Create schedules a reminder. when is an ISO timestamp, a duration
	// like "30m", or a phrase like "in 2 hours"; repeat is an optional
	// cron spec or interval. Returns a short confirmation.
	Create(ctx context.Context, callerID, text, when, repeat string) (string, error)
	List(ctx context.Context, callerID string) (string, error)
	Cancel(ctx context.Context, callerID, id string) (string, error)
}

// RegisterReminderTools adds set_reminder, list_reminders, cancel_reminder.
func (r *Registry) RegisterReminderTools(svc ReminderService) {
	r.Register(&Tool{
		Name:        "set_reminder",
		Description: "Schedule a reminder to be delivered later. Supports one-shot times and recurring schedules.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "What to remind the user about",
				},
				"when": map[string]any{
					"type":        "string",
					"description": "When to fire: ISO timestamp, duration like '30m', or 'in 2 hours'",
				},
				"repeat": map[string]any{
					"type":        "string",
					"description": "Optional recurrence: cron spec like '0 9 * * *', or interval like '24h'",
				},
			},
			"required": []string{"text", "when"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			when, _ := args["when"].(string)
			repeat, _ := args["repeat"].(string)
			if text == "" || when == "" {
				return "", fmt.Errorf("text and when are required")
			}
			caller := CallerFromContext(ctx)
			return svc.Create(ctx, caller.ID, text, when, repeat)
		},
	})

	r.Register(&Tool{
		Name:        "list_reminders",
		Description: "List the user's pending reminders.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			caller := CallerFromContext(ctx)
			return svc.List(ctx, caller.ID)
		},
	})

	r.Register(&Tool{
		Name:        "cancel_reminder",
		Description: "Cancel a pending reminder by its ID (or ID prefix).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "The reminder ID to cancel",
				},
			},
			"required": []string{"id"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			id, _ := args["id"].(string)
			if id == "" {
				return "", fmt.Errorf("id is required")
			}
			caller := CallerFromContext(ctx)
			return svc.Cancel(ctx, caller.ID, id)
		},
	})
}
