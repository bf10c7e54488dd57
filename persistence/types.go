package persistence

import (
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// RoomStore owns the room rows. Rooms are never hard-deleted, closing a
// room is a state change.
type RoomStore interface {
	SaveRoom(room *types.Room) error
	GetRoom(id uint) (*types.Room, error)
	GetRoomByPost(variant types.Variant, postID uint) (*types.Room, error)
	// RoomsByMember lists the rooms the member currently has an active
	// membership in, most recently updated first.
	RoomsByMember(memberID uint, page, size int) ([]*types.Room, error)
}

// MembershipStore owns the per-room, per-member join/leave records.
type MembershipStore interface {
	SaveMembership(m *types.Membership) error
	GetMembership(roomID, memberID uint) (*types.Membership, error)
	ActiveMemberships(roomID uint) ([]*types.Membership, error)
	CountActiveMemberships(roomID uint) (int, error)
}

// MessageStore is the append-only, source-of-truth message log.
type MessageStore interface {
	AppendMessage(msg *types.Message) error

	// MessageHistory returns a room's messages in descending SentAt order
	// (ties broken by id). visibleAfter is the viewer's window cutoff,
	// exclusive; zero disables it. before is the pagination cursor,
	// exclusive; zero means the latest page. limit caps the page size.
	MessageHistory(roomID uint, visibleAfter, before time.Time, limit int) ([]*types.Message, error)

	// LatestMessage returns the newest message of a room, or ErrNotFound.
	LatestMessage(roomID uint) (*types.Message, error)
}

type Store interface {
	RoomStore
	MembershipStore
	MessageStore
	Close() error
}
