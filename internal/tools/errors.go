// This file defines sentinel error types and the error sanitizer for
// tool execution. Tool failures become result text the model can see,
// so everything here must keep internal detail (paths, stack frames)
// out of that channel.
package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the effective registry. This indicates a capability
// mismatch (gated out or nonexistent), not a transient execution
// failure.
type ErrToolUnavailable struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}

var (
	// Absolute filesystem paths, including ones embedded mid-sentence.
	absPathRe = regexp.MustCompile(`(?:^|[\s"'(=:])(/[\w.\-]+(?:/[\w.\-]+)+)`)

	// Stack-trace-style lines: "goroutine 12 [running]:", tab-indented
	// frames, and "at pkg.Func(...)" forms.
	stackLineRe = regexp.MustCompile(`(?m)^(?:goroutine \d+ \[.*\]:|\t\S.*|\s*at \S+\(.*\))$`)
)

// SanitizeError rewrites an error message so it is safe to hand to the
// model as tool-result text: absolute paths are replaced with a
// placeholder and stack-trace lines are dropped.
func SanitizeError(msg string) string {
	msg = stackLineRe.ReplaceAllString(msg, "")
	msg = absPathRe.ReplaceAllStringFunc(msg, func(m string) string {
		idx := strings.Index(m, "/")
		return m[:idx] + "<path>"
	})

	// Collapse the blank lines left behind by dropped stack frames.
	lines := strings.Split(msg, "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
