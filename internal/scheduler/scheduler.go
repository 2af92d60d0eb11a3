// internal/scheduler/scheduler.go
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/tenex-chat/web-client-sub005/internal/state"
)

// Handler is the callback invoked when a watch fires.
type Handler func(w state.Watch)

// Scheduler evaluates cron expressions from the watch store and fires
// digests through a handler callback.
type Scheduler struct {
	store   *state.WatchStore
	handler Handler
	cron    *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is a schedule the scheduler accepts.
func ValidateSchedule(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// New creates a new Scheduler backed by the given watch store.
func New(store *state.WatchStore, handler Handler) *Scheduler {
	return &Scheduler{
		store:   store,
		handler: handler,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers every enabled watch that has a schedule and starts the
// cron ticker. Watches with invalid schedules are logged and skipped.
func (s *Scheduler) Start() error {
	watches, err := s.store.List()
	if err != nil {
		return err
	}

	for _, w := range watches {
		if w.Schedule == "" || !w.Enabled {
			continue
		}
		watch := *w
		_, err := s.cron.AddFunc(watch.Schedule, func() {
			slog.Info("cron firing watch", "name", watch.Name, "conversation", watch.Conversation, "target", watch.Target)
			s.handler(watch)
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", watch.Name, "schedule", watch.Schedule, "error", err)
			continue
		}
		slog.Info("scheduled watch", "name", watch.Name, "schedule", watch.Schedule)
	}

	s.cron.Start()
	return nil
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Reload stops the existing cron, creates a new one, and calls Start() again.
func (s *Scheduler) Reload() error {
	s.cron.Stop()
	s.cron = cron.New(cron.WithParser(cronParser))
	return s.Start()
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
