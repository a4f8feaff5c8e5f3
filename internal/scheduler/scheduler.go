package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DeliverFunc is called when a reminder fires. Implementations usually
// run the agent with a synthetic message or send the text directly.
type DeliverFunc func(ctx context.Context, callerID, text string)

// Scheduler arms a timer per pending reminder and delivers each one
// when it comes due. Recurring reminders are re-armed after delivery;
// one-shot reminders are removed.
type Scheduler struct {
	logger  *slog.Logger
	store   *Store
	deliver DeliverFunc

	mu      sync.Mutex
	timers  map[string]*time.Timer // reminder ID -> timer
	running bool
	wg      sync.WaitGroup
}

// New creates a scheduler over the given store.
func New(logger *slog.Logger, store *Store, deliver DeliverFunc) *Scheduler {
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		store:   store,
		deliver: deliver,
		timers:  make(map[string]*time.Timer),
	}
}

// Start loads stored reminders and arms their timers. Reminders whose
// time passed while the process was down fire immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	reminders, err := s.store.All()
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	for _, r := range reminders {
		s.arm(r)
	}

	s.logger.Info("scheduler started", "reminders", len(reminders))
	return nil
}

// Stop cancels all timers and waits for in-flight deliveries.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Create schedules a reminder and returns a short confirmation. It
// implements the reminder tool surface.
func (s *Scheduler) Create(ctx context.Context, callerID, text, when, repeat string) (string, error) {
	now := time.Now()
	at, err := ParseWhen(when, now)
	if err != nil {
		return "", err
	}
	if !at.After(now) {
		return "", fmt.Errorf("%q is in the past", when)
	}
	if err := ValidateRepeat(repeat); err != nil {
		return "", err
	}

	r := &Reminder{
		CallerID: callerID,
		Text:     text,
		NextRun:  at,
		Repeat:   strings.TrimSpace(repeat),
	}
	if err := s.store.Create(r); err != nil {
		return "", err
	}
	s.arm(r)

	s.logger.Info("reminder created", "id", r.ID, "caller", callerID, "next", r.NextRun)

	confirmation := fmt.Sprintf("Reminder %s set for %s.", shortID(r.ID), at.Format("Mon Jan 2 15:04"))
	if r.Repeat != "" {
		confirmation = fmt.Sprintf("Reminder %s set for %s, repeating (%s).", shortID(r.ID), at.Format("Mon Jan 2 15:04"), r.Repeat)
	}
	return confirmation, nil
}

// List formats the caller's pending reminders.
func (s *Scheduler) List(ctx context.Context, callerID string) (string, error) {
	reminders, err := s.store.ByCaller(callerID)
	if err != nil {
		return "", err
	}
	if len(reminders) == 0 {
		return "No pending reminders.", nil
	}

	var sb strings.Builder
	for _, r := range reminders {
		fmt.Fprintf(&sb, "- [%s] %s — %s", shortID(r.ID), r.NextRun.Format("Mon Jan 2 15:04"), r.Text)
		if r.Repeat != "" {
			fmt.Fprintf(&sb, " (repeats %s)", r.Repeat)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// Cancel removes a reminder by ID or unique ID prefix.
func (s *Scheduler) Cancel(ctx context.Context, callerID, id string) (string, error) {
	r, err := s.store.Delete(callerID, id)
	if err != nil {
		return "", err
	}
	s.disarm(r.ID)
	s.logger.Info("reminder cancelled", "id", r.ID, "caller", callerID)
	return fmt.Sprintf("Cancelled reminder: %s", r.Text), nil
}

// arm sets (or replaces) the timer for a reminder. The waitgroup count
// is taken here, not in the fired callback, so Stop's wait cannot miss
// a timer that fires concurrently. Whoever stops a timer before it
// fires releases its count; a timer that fires releases it in onFire.
func (s *Scheduler) arm(r *Reminder) {
	delay := time.Until(r.NextRun)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		// Stopped (or not yet started): the reminder stays in the store
		// and the next Start arms it.
		return
	}
	if timer, exists := s.timers[r.ID]; exists && timer.Stop() {
		s.wg.Done()
	}
	id := r.ID
	s.wg.Add(1)
	s.timers[id] = time.AfterFunc(delay, func() {
		s.onFire(id)
	})
}

func (s *Scheduler) disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, exists := s.timers[id]; exists {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
}

// onFire delivers a due reminder and reschedules or removes it.
func (s *Scheduler) onFire(id string) {
	defer s.wg.Done()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	r, err := s.store.Get(id)
	if err != nil {
		s.logger.Error("failed to load firing reminder", "id", id, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("delivering reminder", "id", r.ID, "caller", r.CallerID)
	if s.deliver != nil {
		s.deliver(ctx, r.CallerID, r.Text)
	}

	next, ok := r.NextAfter(time.Now())
	if !ok {
		if err := s.store.remove(r.ID); err != nil {
			s.logger.Error("failed to remove fired reminder", "id", r.ID, "error", err)
		}
		return
	}
	if err := s.store.UpdateNextRun(r.ID, next); err != nil {
		s.logger.Error("failed to reschedule reminder", "id", r.ID, "error", err)
		return
	}
	r.NextRun = next
	s.arm(r)
}

// shortID returns the first UUID group, enough to cancel by prefix.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
