package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines file-tool paths to a per-caller directory under the
// uploads root. Admin callers bypass containment entirely; the
// send-file-by-name convenience still defaults bare names into the
// caller's own folder for them.
type Sandbox struct {
	uploadsRoot string
}

// NewSandbox creates a sandbox rooted at uploadsRoot. Each caller gets
// the subdirectory uploadsRoot/<callerID>.
func NewSandbox(uploadsRoot string) *Sandbox {
	return &Sandbox{uploadsRoot: uploadsRoot}
}

// CallerRoot returns the caller's directory, creating it if missing.
func (s *Sandbox) CallerRoot(caller Caller) (string, error) {
	root := filepath.Join(s.uploadsRoot, caller.ID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create caller directory: %w", err)
	}
	return root, nil
}

// Resolve maps a requested path to an absolute filesystem path. For
// non-admin callers the result is guaranteed to stay inside the
// caller's root: traversal and absolute escapes are rejected via the
// relative-path check, and symlink escapes are rejected by re-resolving
// through EvalSymlinks when the target already exists. A target that
// does not exist yet (a fresh write) passes the symlink check, since
// there is nothing to escape through.
func (s *Sandbox) Resolve(caller Caller, path string) (string, error) {
	if caller.Caps.Admin {
		if filepath.IsAbs(path) {
			return filepath.Clean(path), nil
		}
		root, err := s.CallerRoot(caller)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, path), nil
	}

	root, err := s.CallerRoot(caller)
	if err != nil {
		return "", err
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	if err := checkContained(root, target); err != nil {
		return "", err
	}

	// Symlink escape check, only meaningful when the target exists.
	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		if os.IsNotExist(err) {
			return target, nil
		}
		return "", fmt.Errorf("resolve path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve caller directory: %w", err)
	}
	if err := checkContained(realRoot, real); err != nil {
		return "", err
	}

	return target, nil
}

// checkContained rejects targets whose path relative to root escapes it.
func checkContained(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path outside your folder")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path outside your folder")
	}
	return nil
}
