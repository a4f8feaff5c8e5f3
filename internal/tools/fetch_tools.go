// Web fetch tool.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// Fetcher retrieves a web page and returns its readable text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// RegisterFetchTool adds web_fetch.
func (r *Registry) RegisterFetchTool(f Fetcher) {
	r.Register(&Tool{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its readable text content. Use for looking up current information from a known URL.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The http or https URL to fetch",
				},
			},
			"required": []string{"url"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return "", fmt.Errorf("url is required")
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return "", fmt.Errorf("only http and https URLs are supported")
			}
			return f.Fetch(ctx, url)
		},
	})
}
