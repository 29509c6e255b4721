package notify

import (
	"context"
	"time"
)

// RoleChangePayload is what we send to chat sinks when an account changes.
type RoleChangePayload struct {
	Event        string
	ActorUID     string
	ActorEmail   string
	TargetUID    string
	TargetEmail  string
	PreviousRole string
	NewRole      string
	OccurredAt   time.Time
}

// Sink describes a destination capable of consuming role change notifications.
type Sink interface {
	SendRoleChange(ctx context.Context, payload RoleChangePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload RoleChangePayload) error

// SendRoleChange implements the Sink interface.
func (f SinkFunc) SendRoleChange(ctx context.Context, payload RoleChangePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
