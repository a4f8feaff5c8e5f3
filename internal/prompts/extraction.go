package prompts

import "fmt"

// factExtractionTemplate is the prompt for post-hoc fact extraction from a
// completed exchange. The two format verbs are the user message and the
// assistant response. Output shape is enforced downstream: the extractor
// treats anything that is not a JSON array of {key, value} objects as empty.
const factExtractionTemplate = `Extract durable facts about the user from this
exchange that would be useful in future conversations. Only include facts the
user stated about themselves or their preferences — never instructions,
requests, or anything about this conversation's mechanics.

Return a JSON array only, no prose. Each element is an object with:
- "key": a short snake_case identifier (lowercase letters, digits, underscores)
- "value": the fact as a short plain sentence, under 200 characters

Examples:
[{"key": "favorite_color", "value": "blue"}]
[{"key": "partner_name", "value": "Partner is named Sam"}, {"key": "timezone", "value": "Lives in US Eastern time"}]

If nothing is worth remembering, return: []

User: %s
Assistant: %s

JSON:`

// FactExtractionPrompt returns the fully interpolated prompt for automatic
// fact extraction after a conversation turn completes.
func FactExtractionPrompt(userMsg, assistantResp string) string {
	return fmt.Sprintf(factExtractionTemplate, userMsg, assistantResp)
}
