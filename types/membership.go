package types

import "time"

// Membership is a member's participation record in one room. There is at
// most one row per (room, member) pair, reused across rejoin cycles: leave
// flips IsActive off, a later join flips it back on and restamps
// LastEnteredAt. LastEnteredAt is non-decreasing over the row's lifetime
// and anchors the member's message visibility window.
type Membership struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	RoomID           uint      `json:"room_id" gorm:"uniqueIndex:idx_memberships_room_member"`
	MemberID         uint      `json:"member_id" gorm:"uniqueIndex:idx_memberships_room_member"`
	IsActive         bool      `json:"is_active" gorm:"index"`
	HasEnteredBefore bool      `json:"has_entered_before"`
	LastEnteredAt    time.Time `json:"last_entered_at"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}
