// Package scheduler delivers reminders at their scheduled times,
// supporting one-shot and recurring schedules.
package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Reminder is one scheduled delivery.
type Reminder struct {
	ID       string    `json:"id"` // UUIDv7
	CallerID string    `json:"caller_id"`
	Text     string    `json:"text"`
	NextRun  time.Time `json:"next_run"`
	// Repeat is empty for one-shot reminders, a 5-field cron spec, or a
	// Go duration string for fixed intervals.
	Repeat    string    `json:"repeat,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// cronParser accepts standard 5-field cron specs plus descriptors like
// @daily.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var inPhraseRe = regexp.MustCompile(`(?i)^in\s+(\d+(?:\.\d+)?)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?)$`)

// ParseWhen turns a user-facing time expression into an absolute time.
// Accepted forms: RFC 3339 timestamps, bare durations ("30m", "2h"),
// and "in N <unit>" phrases.
func ParseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("when is required")
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", s); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(d), nil
	}

	if m := inPhraseRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable time %q", s)
		}
		var unit time.Duration
		switch {
		case strings.HasPrefix(strings.ToLower(m[2]), "sec"):
			unit = time.Second
		case strings.HasPrefix(strings.ToLower(m[2]), "min"):
			unit = time.Minute
		case strings.HasPrefix(strings.ToLower(m[2]), "h"):
			unit = time.Hour
		case strings.HasPrefix(strings.ToLower(m[2]), "day"):
			unit = 24 * time.Hour
		}
		return now.Add(time.Duration(n * float64(unit))), nil
	}

	return time.Time{}, fmt.Errorf("unparseable time %q (use RFC 3339, a duration like 30m, or 'in 2 hours')", s)
}

// ValidateRepeat checks a recurrence spec: empty (one-shot), a cron
// spec, or a positive duration.
func ValidateRepeat(repeat string) error {
	repeat = strings.TrimSpace(repeat)
	if repeat == "" {
		return nil
	}
	if d, err := time.ParseDuration(repeat); err == nil {
		if d < time.Minute {
			return fmt.Errorf("repeat interval %q is below one minute", repeat)
		}
		return nil
	}
	if _, err := cronParser.Parse(repeat); err != nil {
		return fmt.Errorf("repeat %q is neither a duration nor a cron spec: %w", repeat, err)
	}
	return nil
}

// NextAfter computes the reminder's next firing strictly after the
// given time. Returns false when the reminder has no future runs.
func (r *Reminder) NextAfter(after time.Time) (time.Time, bool) {
	if r.Repeat == "" {
		if r.NextRun.After(after) {
			return r.NextRun, true
		}
		return time.Time{}, false
	}

	if d, err := time.ParseDuration(r.Repeat); err == nil && d > 0 {
		next := r.NextRun
		for !next.After(after) {
			next = next.Add(d)
		}
		return next, true
	}

	sched, err := cronParser.Parse(r.Repeat)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(after), true
}
