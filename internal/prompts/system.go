package prompts

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// systemTemplate is the base system prompt for interactive conversations.
// The two format verbs are the current date/time and the capability summary.
const systemTemplate = `You are Valet, a personal assistant agent. You help with
reminders, notes, files, web lookups, and (when linked) the user's mailbox.

Current date and time: %s

%s

Rules:
- When the user asks about external state (mail, reminders, notes, files,
  system status), consult the relevant tool before answering. Never guess.
- Use tools by emitting structured tool calls, never by writing code blocks
  or pseudo-code describing a call.
- Answer plainly and concisely. Do not mention tool names or internal
  mechanics unless the user asks.
- If a tool returns an error, say what failed in plain words and suggest a
  next step.`

// capabilitySummary lines appended per gate. Kept short — the full catalog
// is in the tool declarations themselves.
const (
	capsBase   = "Available capabilities: reminders, notes, file storage, web fetch, and general conversation."
	capsMail   = "The user's mail account is linked: you can check inbox status and read messages."
	capsNoMail = "No mail account is linked: mail tools are unavailable. If asked about mail, say the account is not linked."
	capsAdmin  = "This caller is an administrator: shell execution and unrestricted file paths are permitted."
)

// factsHeader precedes remembered facts. Fact values are stored sanitized;
// they are injected verbatim here.
const factsHeader = "\n\nRemembered facts about this user:"

// SystemPrompt builds the system message for one conversation turn.
// facts is the caller's durable key/value memory; mailLinked and admin
// reflect the capability gate computed for this turn.
func SystemPrompt(now time.Time, facts map[string]string, mailLinked, admin bool) string {
	caps := []string{capsBase}
	if mailLinked {
		caps = append(caps, capsMail)
	} else {
		caps = append(caps, capsNoMail)
	}
	if admin {
		caps = append(caps, capsAdmin)
	}

	prompt := fmt.Sprintf(systemTemplate,
		now.Format("Monday, January 2, 2006 at 3:04 PM MST"),
		strings.Join(caps, "\n"),
	)

	if len(facts) > 0 {
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString(prompt)
		sb.WriteString(factsHeader)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", k, facts[k]))
		}
		return sb.String()
	}

	return prompt
}
