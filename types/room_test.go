package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextState(t *testing.T) {
	// author alone in a fresh room
	assert.Equal(t, RoomWaiting, NextState("", 1, false))
	assert.Equal(t, RoomWaiting, NextState(RoomWaiting, 1, false))

	// second member arrives, room becomes writable
	assert.Equal(t, RoomActive, NextState(RoomWaiting, 2, false))
	assert.True(t, NextState(RoomWaiting, 2, false).Messageable())

	// back down to one member: degraded, not waiting
	assert.Equal(t, RoomDegraded, NextState(RoomActive, 1, false))
	assert.False(t, RoomDegraded.Messageable())

	// a degraded room can recover
	assert.Equal(t, RoomActive, NextState(RoomDegraded, 2, false))

	// last member out closes the room
	assert.Equal(t, RoomClosed, NextState(RoomDegraded, 0, false))
	assert.False(t, RoomClosed.IsOpen())

	// author leaving after completion is absorbing regardless of count
	assert.Equal(t, RoomAuthorLeft, NextState(RoomActive, 3, true))
	assert.Equal(t, RoomAuthorLeft, NextState(RoomAuthorLeft, 5, false))
	assert.False(t, RoomAuthorLeft.Messageable())

	// ...until everybody is gone
	assert.Equal(t, RoomClosed, NextState(RoomAuthorLeft, 0, true))

	// the author-departure fact outlives closure: members re-entering a
	// drained room land back in read-only, never active
	assert.Equal(t, RoomAuthorLeft, NextState(RoomClosed, 1, true))
	assert.Equal(t, RoomAuthorLeft, NextState(RoomClosed, 2, true))
	assert.Equal(t, RoomActive, NextState(RoomClosed, 2, false))
}

func TestVariantConstants(t *testing.T) {
	assert.Equal(t, 10, VariantMate.Capacity())
	assert.Equal(t, 0, VariantGoods.Capacity())
	assert.Equal(t, "chat/mate/42", VariantMate.Topic(42))
	assert.Equal(t, "chat/goods/7", VariantGoods.Topic(7))

	v, err := ParseVariant("goods")
	assert.NoError(t, err)
	assert.Equal(t, VariantGoods, v)
	_, err = ParseVariant("other")
	assert.Error(t, err)
}

func TestAgeGenderGates(t *testing.T) {
	assert.True(t, AgeAll.Allows(77))
	assert.True(t, AgeTwenties.Allows(25))
	assert.False(t, AgeTwenties.Allows(30))
	assert.True(t, AgeRestriction("").Allows(15))
	assert.False(t, AgeRestriction("SIXTIES").Allows(65))

	assert.True(t, GenderAny.Allows(Male))
	assert.True(t, GenderFemale.Allows(Female))
	assert.False(t, GenderFemale.Allows(Male))
}
