// Mail tools, available only when the caller's mail account is linked.
package tools

import (
	"context"
	"fmt"
)

// Mailbox is the linked-account mail surface.
type Mailbox interface {
	Status(ctx context.Context) (string, error)
	List(ctx context.Context, limit int) (string, error)
	Read(ctx context.Context, seq uint32) (string, error)
}

// RegisterMailTools adds mail_status, mail_list, and mail_read behind
// the MailLinked gate.
func (r *Registry) RegisterMailTools(mb Mailbox) {
	r.Register(&Tool{
		Name:        "mail_status",
		Description: "Check the user's linked mailbox: total and unread message counts. Always use this before answering questions about mail.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		MailOnly: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return mb.Status(ctx)
		},
	})

	r.Register(&Tool{
		Name:        "mail_list",
		Description: "List the most recent messages in the user's inbox (sender, subject, date).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "How many messages to list (default 10, max 50)",
				},
			},
		},
		MailOnly: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			limit := 10
			if l, ok := args["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}
			if limit > 50 {
				limit = 50
			}
			return mb.List(ctx, limit)
		},
	})

	r.Register(&Tool{
		Name:        "mail_read",
		Description: "Read one message from the inbox by its sequence number (as shown by mail_list).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"seq": map[string]any{
					"type":        "integer",
					"description": "The message sequence number",
				},
			},
			"required": []string{"seq"},
		},
		MailOnly: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			seq, ok := args["seq"].(float64)
			if !ok || seq < 1 {
				return "", fmt.Errorf("seq must be a positive integer")
			}
			return mb.Read(ctx, uint32(seq))
		},
	})
}
