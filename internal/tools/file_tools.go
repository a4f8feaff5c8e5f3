// File tools: read, write, list, and send files inside the caller's
// sandboxed folder.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSender delivers a file to the caller over the chat transport.
type FileSender interface {
	SendFile(ctx context.Context, callerID, path string) error
}

const maxFileReadBytes = 50 * 1024

// RegisterFileTools adds file_read, file_write, file_list, and
// send_file. sender may be nil, which disables send_file.
func (r *Registry) RegisterFileTools(sb *Sandbox, sender FileSender) {
	r.Register(&Tool{
		Name:        "file_read",
		Description: "Read a text file from your file storage. Paths are relative to the caller's folder.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path, e.g. notes/todo.txt",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			abs, err := sb.Resolve(CallerFromContext(ctx), path)
			if err != nil {
				return "", err
			}

			data, err := os.ReadFile(abs)
			if err != nil {
				if os.IsNotExist(err) {
					return "", fmt.Errorf("file not found: %s", path)
				}
				return "", fmt.Errorf("read file: %w", err)
			}

			content := string(data)
			if len(content) > maxFileReadBytes {
				content = content[:maxFileReadBytes] + "\n\n[... truncated ...]"
			}
			return content, nil
		},
	})

	r.Register(&Tool{
		Name:        "file_write",
		Description: "Write a text file into your file storage, creating parent directories as needed. Overwrites existing content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path, e.g. notes/todo.txt",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "The full file content to write",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			abs, err := sb.Resolve(CallerFromContext(ctx), path)
			if err != nil {
				return "", err
			}

			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return "", fmt.Errorf("create directory: %w", err)
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("write file: %w", err)
			}
			return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
		},
	})

	r.Register(&Tool{
		Name:        "file_list",
		Description: "List files in a directory of your file storage.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path; empty for the top of your folder",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				path = "."
			}
			abs, err := sb.Resolve(CallerFromContext(ctx), path)
			if err != nil {
				return "", err
			}

			entries, err := os.ReadDir(abs)
			if err != nil {
				if os.IsNotExist(err) {
					return "", fmt.Errorf("directory not found: %s", path)
				}
				return "", fmt.Errorf("read directory: %w", err)
			}
			if len(entries) == 0 {
				return "The directory is empty.", nil
			}

			var names []string
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			return strings.Join(names, "\n"), nil
		},
	})

	if sender == nil {
		return
	}
	r.Register(&Tool{
		Name:        "send_file",
		Description: "Send a stored file to the user over chat. A bare filename refers to the caller's own folder.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "The file to send",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			caller := CallerFromContext(ctx)

			// Bare names default into the caller's own folder even for
			// admins. Convenience, not containment: explicit absolute
			// paths still bypass the sandbox for admins via Resolve.
			abs, err := sb.Resolve(caller, path)
			if err != nil {
				return "", err
			}
			if _, err := os.Stat(abs); err != nil {
				if os.IsNotExist(err) {
					return "", fmt.Errorf("file not found: %s", path)
				}
				return "", fmt.Errorf("stat file: %w", err)
			}

			if err := sender.SendFile(ctx, caller.ID, abs); err != nil {
				return "", fmt.Errorf("send file: %w", err)
			}
			return fmt.Sprintf("Sent %s to the user.", filepath.Base(abs)), nil
		},
	})
}
