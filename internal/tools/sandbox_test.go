package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSandbox_Resolve(t *testing.T) {
	root := t.TempDir()
	sb := NewSandbox(root)
	caller := Caller{ID: "42"}

	t.Run("relative path resolves into caller folder", func(t *testing.T) {
		got, err := sb.Resolve(caller, "notes/todo.txt")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(root, "42", "notes", "todo.txt")
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		if _, err := sb.Resolve(caller, "../../etc/passwd"); err == nil {
			t.Fatal("expected traversal rejection")
		}
	})

	t.Run("absolute path outside root rejected", func(t *testing.T) {
		if _, err := sb.Resolve(caller, "/etc/passwd"); err == nil {
			t.Fatal("expected absolute path rejection")
		}
	})

	t.Run("absolute path inside caller folder allowed", func(t *testing.T) {
		inside := filepath.Join(root, "42", "file.txt")
		got, err := sb.Resolve(caller, inside)
		if err != nil {
			t.Fatal(err)
		}
		if got != inside {
			t.Errorf("got %q, want %q", got, inside)
		}
	})

	t.Run("other caller's folder rejected", func(t *testing.T) {
		other := filepath.Join(root, "99", "file.txt")
		if _, err := sb.Resolve(caller, other); err == nil {
			t.Fatal("expected cross-caller rejection")
		}
	})

	t.Run("nonexistent target allowed for writes", func(t *testing.T) {
		if _, err := sb.Resolve(caller, "brand/new/file.txt"); err != nil {
			t.Fatalf("fresh write target must pass: %v", err)
		}
	})
}

func TestSandbox_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	sb := NewSandbox(root)
	caller := Caller{ID: "42"}

	callerDir := filepath.Join(root, "42")
	if err := os.MkdirAll(callerDir, 0o755); err != nil {
		t.Fatal(err)
	}

	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("s3cret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(callerDir, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	// Existing symlink pointing outside the sandbox must be rejected.
	if _, err := sb.Resolve(caller, "link.txt"); err == nil {
		t.Fatal("expected symlink escape rejection")
	}

	// A symlink pointing inside the sandbox is fine.
	target := filepath.Join(callerDir, "real.txt")
	if err := os.WriteFile(target, []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(callerDir, "inlink.txt")); err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Resolve(caller, "inlink.txt"); err != nil {
		t.Fatalf("internal symlink must be allowed: %v", err)
	}
}

func TestSandbox_AdminBypass(t *testing.T) {
	root := t.TempDir()
	sb := NewSandbox(root)
	admin := Caller{ID: "1", Caps: Caps{Admin: true}}

	t.Run("absolute path allowed", func(t *testing.T) {
		got, err := sb.Resolve(admin, "/etc/hosts")
		if err != nil {
			t.Fatal(err)
		}
		if got != "/etc/hosts" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("bare name defaults to own folder", func(t *testing.T) {
		got, err := sb.Resolve(admin, "report.pdf")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(root, "1", "report.pdf")
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}
