package agent

import "testing"

func TestLooksLikeToolCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"fenced tool_code", "```tool_code\nprint(default_api.mail_list())\n```", true},
		{"bare tool_code", "tool_code\nmail_list()", true},
		{"xml tool call", "<tool_call>{\"name\":\"mail_list\"}</tool_call>", true},
		{"function call tag", "<function_call>mail_list</function_call>", true},
		{"json name block", "```json\n{\"name\": \"mail_list\"}\n```", true},
		{"python api call", "print(default_api.reminder_list())", true},
		{"leading whitespace", "  ```tool_call\nmail_list\n```", true},
		{"normal answer", "You have three unread messages.", false},
		{"code in prose", "Run `print(x)` to see the value.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeToolCode(tt.text); got != tt.want {
				t.Errorf("looksLikeToolCode(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestShouldHaveUsedTools(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"inbox question", "Do I have anything new in my inbox?", true},
		{"unread mail", "any unread mail today?", true},
		{"reminder question", "What reminders do I have set?", true},
		{"stored facts", "What do you know about me?", true},
		{"files question", "Is there a file called notes.txt in my folder?", true},
		{"system status", "Are you running ok? What's your uptime?", true},
		{"mixed case", "Any UNREAD EMAIL?", true},
		{"small talk", "How was your day?", false},
		{"general knowledge", "What is the capital of France?", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldHaveUsedTools(tt.text); got != tt.want {
				t.Errorf("shouldHaveUsedTools(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClaimsUnsupportedCapability(t *testing.T) {
	allTools := map[string]bool{
		"mail_list": true, "mail_read": true, "file_list": true, "set_reminder": true,
	}
	noTools := map[string]bool{}

	tests := []struct {
		name    string
		text    string
		visible map[string]bool
		want    bool
	}{
		{"inbox denial", "I cannot access your inbox for privacy reasons.", allTools, true},
		{"contracted denial", "Sorry, I can't access your email.", allTools, true},
		{"no access phrasing", "I don't have access to your email account.", allTools, true},
		{"reminder denial", "Unfortunately I cannot set reminders.", allTools, true},
		{"unable phrasing", "I'm unable to access your files directly.", allTools, true},
		{"mixed case", "I CANNOT READ YOUR MESSAGES.", allTools, true},
		{"mail denial without mail tools", "Sorry, I can't access your email.", noTools, false},
		{"reminder denial without reminder tool", "Unfortunately I cannot set reminders.", noTools, false},
		{"file denial without file tools", "I don't have access to your files.", noTools, false},
		{"generic denial without tools", "I'm not able to access your account.", noTools, true},
		{"honest limit", "I don't know the weather without a location.", allTools, false},
		{"normal answer", "Your inbox has two unread messages.", allTools, false},
		{"empty", "", allTools, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := claimsUnsupportedCapability(tt.text, tt.visible); got != tt.want {
				t.Errorf("claimsUnsupportedCapability(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
