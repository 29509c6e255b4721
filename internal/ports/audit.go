package ports

import (
	"context"

	"github.com/shepherd-church/shepherd/internal/domain/model"
)

// RoleChangeSink is told about every account change after it has been
// committed together with its audit record.
type RoleChangeSink interface {
	RoleChanged(ctx context.Context, change model.RoleChange)
}

// RoleChangeSinkFunc adapts a function to RoleChangeSink.
type RoleChangeSinkFunc func(ctx context.Context, change model.RoleChange)

// RoleChanged implements RoleChangeSink.
func (f RoleChangeSinkFunc) RoleChanged(ctx context.Context, change model.RoleChange) {
	if f != nil {
		f(ctx, change)
	}
}
