package feedRepo

import (
	"context"

	"campuspark/models"
)

// Filter selects changes touching one occupant. A change matches when either
// the new or the old row carries User, so a subscriber also sees a space
// leaving it.
type Filter struct {
	User string
}

// Matches reports whether the change is relevant to the filter.
func (f Filter) Matches(c models.SpaceChange) bool {
	if c.New != nil && c.New.User == f.User {
		return true
	}
	return c.Old != nil && c.Old.User == f.User
}

// ChangeFeed streams row changes on parking_spaces. The returned channel is
// closed when ctx is cancelled or the underlying stream fails; callers
// resubscribe to recover.
type ChangeFeed interface {
	Subscribe(ctx context.Context, filter Filter) (<-chan models.SpaceChange, error)
}
