package chat

import (
	"fmt"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/persistence"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// Lifecycle owns the aggregate room state derived from membership counts
// and the author-leave event. All calls happen under the coordinator's
// per-room (or per-post, for creation) mutex.
type Lifecycle struct {
	store persistence.Store
	now   func() time.Time
}

func NewLifecycle(store persistence.Store, now func() time.Time) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{store: store, now: now}
}

// Create spins up the room for a post and auto-registers the post's author
// as its first membership. The room starts out waiting (count 1, not
// messageable).
func (l *Lifecycle) Create(post *types.Post, variant types.Variant) (*types.Room, error) {
	room := &types.Room{
		PostID:             post.ID,
		Variant:            variant,
		AuthorID:           post.AuthorID,
		State:              types.RoomWaiting,
		CurrentMemberCount: 1,
		Tags:               types.JSONStringMap{"post_title": post.Title},
	}
	if err := l.store.SaveRoom(room); err != nil {
		return nil, fmt.Errorf("create room for %s post %d: %w", variant, post.ID, err)
	}
	author := &types.Membership{
		RoomID:           room.ID,
		MemberID:         post.AuthorID,
		IsActive:         true,
		HasEnteredBefore: true,
		LastEnteredAt:    l.now(),
	}
	if err := l.store.SaveMembership(author); err != nil {
		return nil, fmt.Errorf("register author membership for room %d: %w", room.ID, err)
	}
	return room, nil
}

// Recompute re-derives the room state after a membership mutation. The
// persisted CurrentMemberCount always equals the count of active
// memberships. authorLeft marks the author-departure event (mate rooms
// only); it is folded into the room's persisted AuthorLeft flag, so the
// fact survives the room draining to closed and any later rejoins.
func (l *Lifecycle) Recompute(room *types.Room, authorLeft bool) error {
	count, err := l.store.CountActiveMemberships(room.ID)
	if err != nil {
		return fmt.Errorf("count active memberships of room %d: %w", room.ID, err)
	}
	if authorLeft {
		room.AuthorLeft = true
	}
	room.CurrentMemberCount = count
	room.State = types.NextState(room.State, count, room.AuthorLeft)
	if err := l.store.SaveRoom(room); err != nil {
		return fmt.Errorf("persist room %d state: %w", room.ID, err)
	}
	return nil
}
