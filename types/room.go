package types

import (
	"time"
)

// RoomState is the explicit room lifecycle state. The combination of
// booleans the platform used before (isActive/isMessageable/isAuthorLeft)
// admitted meaningless states; the enum plus NextState make those
// unrepresentable.
type RoomState string

const (
	// RoomWaiting: freshly created, only the post author inside.
	RoomWaiting RoomState = "waiting"
	// RoomActive: two or more active members, messages allowed.
	RoomActive RoomState = "active"
	// RoomDegraded: dropped back to a single member after having been
	// active, read-only until someone joins again.
	RoomDegraded RoomState = "degraded"
	// RoomAuthorLeft: the author departed after the visit completed.
	// Absorbing and permanently read-only for whoever stays behind.
	RoomAuthorLeft RoomState = "author_left"
	// RoomClosed: no active members remain.
	RoomClosed RoomState = "closed"
)

// NextState is the single transition function of the room state machine,
// driven by the active-member count after a join/leave and by the
// author-departure fact persisted on the room. RoomAuthorLeft absorbs
// everything except full closure, and because authorLeft is a persisted
// fact rather than a one-shot event, a drained room that roster members
// later re-enter comes back read-only, never active.
func NextState(prev RoomState, activeCount int, authorLeft bool) RoomState {
	if activeCount <= 0 {
		return RoomClosed
	}
	if authorLeft || prev == RoomAuthorLeft {
		return RoomAuthorLeft
	}
	if activeCount >= MessageableThreshold {
		return RoomActive
	}
	// single member left: a room that was never active is still waiting
	if prev == RoomWaiting || prev == "" {
		return RoomWaiting
	}
	return RoomDegraded
}

// Messageable reports whether new TALK messages may be sent.
func (s RoomState) Messageable() bool {
	return s == RoomActive
}

// IsOpen reports whether the room still has active members. A closed room
// is kept around (never hard-deleted); roster members of a completed post
// may re-enter it, and NextState then derives the reopened state.
func (s RoomState) IsOpen() bool {
	return s != RoomClosed && s != ""
}

// Room is the chat channel bound to exactly one post. The post itself is
// owned elsewhere, the room only keeps a lookup reference plus the author
// id denormalized at creation time.
type Room struct {
	ID                 uint          `json:"id" gorm:"primaryKey"`
	PostID             uint          `json:"post_id" gorm:"uniqueIndex:idx_rooms_post_variant"`
	Variant            Variant       `json:"variant" gorm:"uniqueIndex:idx_rooms_post_variant"`
	AuthorID           uint          `json:"author_id"`
	State              RoomState     `json:"state" gorm:"index"`
	AuthorLeft         bool          `json:"author_left"`
	CurrentMemberCount int           `json:"current_member_count"`
	Tags               JSONStringMap `json:"tags"`
	CreatedAt          time.Time     `json:"-"`
	UpdatedAt          time.Time     `json:"-"`
}
