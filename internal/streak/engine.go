// Package streak implements the day-granularity completion streak and its
// persistence in the key/value store.
package streak

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/dytgt/internal/constants"
	"github.com/julianstephens/dytgt/internal/errors"
	"github.com/julianstephens/dytgt/internal/logger"
	"github.com/julianstephens/dytgt/internal/metrics"
	"github.com/julianstephens/dytgt/internal/models"
)

// Store is the subset of the key/value store the engine needs
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItems(ctx context.Context, items map[string]string) error
	RemoveItems(ctx context.Context, keys ...string) error
}

type Option func(*Engine)

// WithClock overrides the source of "now"
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone calendar days are computed in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// Engine owns the streak state. The mutex guards the in-memory fields only;
// callers serialize whole operations.
type Engine struct {
	store Store
	now   func() time.Time
	loc   *time.Location

	mu    sync.Mutex
	state models.StreakState
	dirty bool
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the persisted streak, normalizes it, and replaces the in-memory
// state. Read failures fall back to an empty streak and are only logged.
func (e *Engine) Load(ctx context.Context) models.StreakState {
	streak := e.readStreak(ctx)
	last := e.readLastCompletion(ctx)

	state := models.StreakState{CurrentStreak: streak, LastCompletion: last}
	if last == nil {
		state.CurrentStreak = 0
	} else {
		state.HasCompletedToday = SameDay(*last, e.now(), e.loc)
		if state.HasCompletedToday && state.CurrentStreak < 1 {
			state.CurrentStreak = 1
		}
	}

	e.mu.Lock()
	e.state = state
	e.dirty = false
	snapshot := clone(e.state)
	e.mu.Unlock()

	logger.Debug("Loaded streak", "component", "streak", "streak", snapshot.CurrentStreak, "completedToday", snapshot.HasCompletedToday)
	return snapshot
}

// RecordCompletionForToday applies today's completion to the in-memory state
// and persists it. A failed write leaves the engine dirty; the new state is
// returned either way.
func (e *Engine) RecordCompletionForToday(ctx context.Context) models.StreakState {
	now := e.now()

	e.mu.Lock()
	next, transition := Next(e.state, now, e.loc)
	e.state = next
	snapshot := clone(next)
	e.mu.Unlock()

	metrics.RecordStreakCompletion(string(transition))
	logger.Debug("Recorded completion", "component", "streak", "transition", transition, "streak", snapshot.CurrentStreak)

	if err := e.persist(ctx, snapshot); err != nil {
		logger.Warn("Failed to persist streak", "component", "streak", "error", err)
		metrics.RecordStreakPersistFailure()
		e.setDirty(true)
		return snapshot
	}
	e.setDirty(false)
	return snapshot
}

// Dirty reports whether the in-memory state may differ from storage
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Sync writes the in-memory state back to storage when the engine is dirty.
// A cleared streak is synced by removing its keys.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if !e.dirty {
		e.mu.Unlock()
		return nil
	}
	snapshot := clone(e.state)
	e.mu.Unlock()

	var err error
	if snapshot.LastCompletion == nil {
		err = e.store.RemoveItems(ctx, constants.KeyStreak, constants.KeyLastThankedDate)
	} else {
		err = e.persist(ctx, snapshot)
	}
	if err != nil {
		return errors.NewStorageError("failed to sync streak", err)
	}

	e.setDirty(false)
	logger.Info("Streak synced", "component", "streak")
	return nil
}

// Reset clears the streak in memory and in storage. If removal fails the
// engine is left dirty so a later Sync can retry it.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.state = models.StreakState{}
	e.mu.Unlock()

	if err := e.store.RemoveItems(ctx, constants.KeyStreak, constants.KeyLastThankedDate); err != nil {
		e.setDirty(true)
		logger.Warn("Failed to remove streak keys", "component", "streak", "error", err)
		return errors.NewStorageError("failed to reset streak", err)
	}

	e.setDirty(false)
	logger.Info("Streak reset", "component", "streak")
	return nil
}

// State returns a copy of the in-memory state
func (e *Engine) State() models.StreakState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(e.state)
}

// Location returns the time zone used for calendar days
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Next applies one completion at now to state and reports which branch was taken.
// A last completion later than today holds the streak.
func Next(state models.StreakState, now time.Time, loc *time.Location) (models.StreakState, models.StreakTransition) {
	completedAt := now
	next := models.StreakState{
		LastCompletion:    &completedAt,
		HasCompletedToday: true,
	}

	if state.LastCompletion == nil {
		next.CurrentStreak = 1
		return next, models.StreakStarted
	}

	switch days := CalendarDaysBetween(*state.LastCompletion, now, loc); {
	case days <= 0:
		next.CurrentStreak = max(state.CurrentStreak, 1)
		return next, models.StreakHeld
	case days == 1:
		next.CurrentStreak = state.CurrentStreak + 1
		return next, models.StreakContinued
	default:
		next.CurrentStreak = 1
		return next, models.StreakRestarted
	}
}

// CalendarDaysBetween returns the number of calendar dates from "from" to "to"
// in loc. Days shortened or lengthened by DST still count as one.
func CalendarDaysBetween(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	f := from.In(loc)
	t := to.In(loc)
	a := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// SameDay reports whether a and b fall on the same calendar date in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	return CalendarDaysBetween(a, b, loc) == 0
}

// FormatTimestamp renders an instant the way it is stored
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// ParseTimestamp accepts RFC 3339 instants with or without fractional
// seconds, and bare dates in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if d, dErr := time.ParseInLocation(constants.DateFormat, s, loc); dErr == nil {
		return d, nil
	}
	return time.Time{}, err
}

func (e *Engine) persist(ctx context.Context, state models.StreakState) error {
	return e.store.SetItems(ctx, map[string]string{
		constants.KeyStreak:          strconv.Itoa(state.CurrentStreak),
		constants.KeyLastThankedDate: FormatTimestamp(*state.LastCompletion),
	})
}

func (e *Engine) readStreak(ctx context.Context) int {
	raw, ok, err := e.store.GetItem(ctx, constants.KeyStreak)
	if err != nil {
		logger.Warn("Failed to read streak", "component", "streak", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		logger.Warn("Ignoring invalid streak value", "component", "streak", "value", raw)
		return 0
	}
	return n
}

func (e *Engine) readLastCompletion(ctx context.Context) *time.Time {
	raw, ok, err := e.store.GetItem(ctx, constants.KeyLastThankedDate)
	if err != nil {
		logger.Warn("Failed to read last completion", "component", "streak", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	t, err := ParseTimestamp(raw, e.loc)
	if err != nil {
		logger.Warn("Ignoring invalid last completion", "component", "streak", "value", raw)
		return nil
	}
	return &t
}

func (e *Engine) setDirty(dirty bool) {
	e.mu.Lock()
	e.dirty = dirty
	e.mu.Unlock()
}

func clone(s models.StreakState) models.StreakState {
	if s.LastCompletion != nil {
		t := *s.LastCompletion
		s.LastCompletion = &t
	}
	return s
}
