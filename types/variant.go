package types

import "fmt"

// Variant selects which of the two chat flavours a room belongs to. Mate
// rooms hang off a game-watching group post, goods rooms off a trade post.
// The two variants deliberately keep their own constants (capacity, cache
// TTL), they are not unified.
type Variant string

const (
	VariantMate  Variant = "mate"
	VariantGoods Variant = "goods"
)

const (
	// MateRoomCapacity is the maximum number of simultaneously active
	// memberships in a mate room.
	MateRoomCapacity = 10

	// GoodsRoomCapacity of 0 means unlimited: the goods flow is effectively
	// one buyer talking to one seller and never had an explicit limit.
	GoodsRoomCapacity = 0

	// MessageableThreshold is the active-member count at which a room
	// becomes writable.
	MessageableThreshold = 2
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantMate:
		return VariantMate, nil
	case VariantGoods:
		return VariantGoods, nil
	}
	return "", fmt.Errorf("unknown chat variant %q", s)
}

// Capacity returns the active-membership limit for the variant, 0 meaning
// unlimited.
func (v Variant) Capacity() int {
	if v == VariantMate {
		return MateRoomCapacity
	}
	return GoodsRoomCapacity
}

// Topic is the per-room broadcast topic, one topic per room.
func (v Variant) Topic(roomID uint) string {
	return fmt.Sprintf("chat/%s/%d", v, roomID)
}
