package prompts

import "fmt"

// summaryTemplate is the prompt sent to the model to condense older
// conversation turns during history compression. The single format verb
// is the conversation text (role: content pairs).
const summaryTemplate = `Summarize the following conversation into one
third-person paragraph. Cover the topics discussed, decisions made,
preferences expressed, and any actions taken. Do not address the reader.
Do not use bullet points. Keep it under 150 words.

Conversation:
%s

Summary:`

// SummaryPrompt returns the fully interpolated prompt for history
// compression. The caller passes the formatted older-turn transcript.
func SummaryPrompt(conversationText string) string {
	return fmt.Sprintf(summaryTemplate, conversationText)
}
