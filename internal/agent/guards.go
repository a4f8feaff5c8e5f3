package agent

import "strings"

// Guard heuristics are fuzzy text classifiers: pure functions over a
// fixed pattern table per category. The exact patterns are a tuning
// surface, not a structural contract.

// toolCodeMarkers are prefixes a model emits when it leaks raw tool
// pseudo-code into the answer channel instead of making a structured
// tool call.
var toolCodeMarkers = []string{
	"```tool_code",
	"```tool_call",
	"tool_code",
	"<tool_call>",
	"<function_call>",
	"```json\n{\"name\"",
	"print(default_api.",
}

// looksLikeToolCode reports whether a candidate final answer is a
// leaked internal tool-call block.
func looksLikeToolCode(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, m := range toolCodeMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// groundingCategories maps a topic to the message keywords suggesting
// the answer should come from tools rather than assumption.
var groundingCategories = map[string][]string{
	"mail":      {"inbox", "email", "mail", "unread", "message from"},
	"reminders": {"remind", "reminder", "scheduled"},
	"notes":     {"remember", "forget", "you know about me", "my facts"},
	"files":     {"file", "files", "upload", "folder", "document", "notes/"},
	"system":    {"status", "online", "running", "uptime", "health"},
}

// shouldHaveUsedTools reports whether the user's message concerns
// external state the assistant has tools to check.
func shouldHaveUsedTools(text string) bool {
	lower := strings.ToLower(text)
	for _, keywords := range groundingCategories {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// capabilityDenials maps denial phrases to the tool that would perform
// the denied action. A phrase with an empty tool name is a generic
// privacy-restriction claim and matches regardless of the tool set.
var capabilityDenials = []struct {
	phrase string
	tool   string
}{
	{"i cannot access your inbox", "mail_list"},
	{"i can't access your inbox", "mail_list"},
	{"i cannot access your email", "mail_list"},
	{"i can't access your email", "mail_list"},
	{"i don't have access to your email", "mail_list"},
	{"i do not have access to your email", "mail_list"},
	{"i cannot read your messages", "mail_read"},
	{"i don't have access to your files", "file_list"},
	{"i cannot set reminders", "set_reminder"},
	{"i can't set reminders", "set_reminder"},
	{"for privacy reasons", ""},
	{"i'm not able to access your", ""},
	{"i am not able to access your", ""},
	{"i don't have the ability to access", ""},
	{"i'm unable to access your", ""},
}

// claimsUnsupportedCapability reports whether an answer denies a
// capability that a currently visible tool actually provides. A denial
// with no visible tool is accurate and must not trigger a correction.
func claimsUnsupportedCapability(text string, visible map[string]bool) bool {
	lower := strings.ToLower(text)
	for _, d := range capabilityDenials {
		if !strings.Contains(lower, d.phrase) {
			continue
		}
		if d.tool == "" || visible[d.tool] {
			return true
		}
	}
	return false
}
