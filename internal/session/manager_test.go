package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func testManager() *Manager {
	return NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBeginAndDone(t *testing.T) {
	m := testManager()
	ctx, done := m.Begin(context.Background(), "42")

	if !m.Active("42") {
		t.Error("expected run to be active")
	}
	done()
	if m.Active("42") {
		t.Error("expected run to be cleared after done")
	}
	if ctx.Err() == nil {
		t.Error("expected context cancelled after done")
	}
}

func TestNewRunSupersedesOld(t *testing.T) {
	m := testManager()
	first, _ := m.Begin(context.Background(), "42")
	second, doneSecond := m.Begin(context.Background(), "42")
	defer doneSecond()

	if first.Err() == nil {
		t.Error("expected first run cancelled by the second")
	}
	if second.Err() != nil {
		t.Error("second run should still be live")
	}
}

func TestCancel(t *testing.T) {
	m := testManager()
	ctx, _ := m.Begin(context.Background(), "42")

	if !m.Cancel("42") {
		t.Error("Cancel should report an in-flight run")
	}
	if ctx.Err() != context.Canceled {
		t.Errorf("ctx.Err() = %v, want context.Canceled", ctx.Err())
	}
	if m.Cancel("42") {
		t.Error("second Cancel should report nothing to cancel")
	}
}

func TestCallersIndependent(t *testing.T) {
	m := testManager()
	a, doneA := m.Begin(context.Background(), "42")
	defer doneA()
	_, doneB := m.Begin(context.Background(), "99")

	doneB()
	if a.Err() != nil {
		t.Error("cancelling one caller must not affect another")
	}
}

func TestStaleDoneDoesNotClearNewerRun(t *testing.T) {
	m := testManager()
	_, doneFirst := m.Begin(context.Background(), "42")
	second, doneSecond := m.Begin(context.Background(), "42")
	defer doneSecond()

	// First run finishing late must not evict the second run's slot.
	doneFirst()
	if !m.Active("42") {
		t.Error("second run should still be registered")
	}
	if second.Err() != nil {
		t.Error("second run's context should still be live")
	}
}
