// Package rolenotifier fans role change notifications out to chat sinks.
package rolenotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shepherd-church/shepherd/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the notifier.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service delivers each payload to every registered sink concurrently.
// Delivery errors are logged and never returned.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs a notifier, dropping nil sinks.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	return &Service{logger: logger.With("component", "role_notifier"), sinks: sinks}
}

// Notify blocks until every sink has been attempted.
func (s *Service) Notify(ctx context.Context, payload notify.RoleChangePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendRoleChange(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "role change notification failed",
					"sink", entry.Name,
					"target_uid", payload.TargetUID,
					"event", payload.Event,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
