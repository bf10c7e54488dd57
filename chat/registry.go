package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/persistence"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// Registry mutates the per-room, per-member join/leave records. One row
// per (room, member) pair, reused across rejoin cycles. Callers hold the
// room mutex, which makes the capacity-check-then-create sequence atomic
// with respect to concurrent joins.
type Registry struct {
	store persistence.Store
	now   func() time.Time
}

func NewRegistry(store persistence.Store, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, now: now}
}

// Join returns the member's membership row. joined reports whether the
// active-member set actually changed: a re-join of an already active
// membership is an idempotent no-op, a new member is admitted only below
// capacity (capacity 0 means unlimited), an inactive row is reactivated
// with a fresh LastEnteredAt stamp.
func (r *Registry) Join(room *types.Room, memberID uint, capacity int) (m *types.Membership, joined bool, err error) {
	m, err = r.store.GetMembership(room.ID, memberID)
	switch {
	case err == nil:
		if m.IsActive {
			return m, false, nil
		}

	case errors.Is(err, persistence.ErrNotFound):
		if capacity > 0 {
			count, err := r.store.CountActiveMemberships(room.ID)
			if err != nil {
				return nil, false, fmt.Errorf("count members of room %d: %w", room.ID, err)
			}
			if count >= capacity {
				return nil, false, ErrRoomFull
			}
		}
		m = &types.Membership{RoomID: room.ID, MemberID: memberID}

	default:
		return nil, false, fmt.Errorf("load membership of member %d in room %d: %w", memberID, room.ID, err)
	}

	m.IsActive = true
	m.HasEnteredBefore = true
	m.LastEnteredAt = r.now()
	if err := r.store.SaveMembership(m); err != nil {
		return nil, false, fmt.Errorf("persist membership of member %d in room %d: %w", memberID, room.ID, err)
	}
	return m, true, nil
}

// Leave deactivates the membership. Idempotent when the row is already
// inactive; a member who never joined is not a participant.
func (r *Registry) Leave(room *types.Room, memberID uint) (m *types.Membership, left bool, err error) {
	m, err = r.store.GetMembership(room.ID, memberID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, false, ErrNotParticipant
	}
	if err != nil {
		return nil, false, fmt.Errorf("load membership of member %d in room %d: %w", memberID, room.ID, err)
	}
	if !m.IsActive {
		return m, false, nil
	}
	m.IsActive = false
	if err := r.store.SaveMembership(m); err != nil {
		return nil, false, fmt.Errorf("persist membership of member %d in room %d: %w", memberID, room.ID, err)
	}
	return m, true, nil
}
