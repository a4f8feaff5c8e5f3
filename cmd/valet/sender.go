package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// outboxSender implements tools.FileSender by copying the file into a
// per-caller outbox directory for the delivery process to pick up. The
// webhook transport is request/response only, so outbound files cannot
// be pushed directly.
type outboxSender struct {
	root   string
	logger *slog.Logger
}

func newOutboxSender(dataDir string, logger *slog.Logger) *outboxSender {
	return &outboxSender{
		root:   filepath.Join(dataDir, "outbox"),
		logger: logger.With("component", "outbox"),
	}
}

func (o *outboxSender) SendFile(ctx context.Context, callerID, path string) error {
	dir := filepath.Join(o.root, callerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(dir, filepath.Base(path))
	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create outbox file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy to outbox: %w", err)
	}

	o.logger.Info("file queued for delivery", "caller", callerID, "file", dest)
	return nil
}
