package chat

import (
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// RoomView is what join operations hand back to the caller.
type RoomView struct {
	RoomID      uint            `json:"roomId"`
	PostID      uint            `json:"postId"`
	Variant     types.Variant   `json:"variant"`
	PostTitle   string          `json:"postTitle"`
	State       types.RoomState `json:"state"`
	Messageable bool            `json:"messageable"`
	MemberCount int             `json:"memberCount"`
}

func NewRoomView(room *types.Room) *RoomView {
	return &RoomView{
		RoomID:      room.ID,
		PostID:      room.PostID,
		Variant:     room.Variant,
		PostTitle:   room.Tags["post_title"],
		State:       room.State,
		Messageable: room.State.Messageable(),
		MemberCount: room.CurrentMemberCount,
	}
}

// RoomSummary is one entry of a member's room list, with a last-message
// preview so list rendering does not need a history fetch per room.
type RoomSummary struct {
	RoomID          uint              `json:"roomId"`
	PostID          uint              `json:"postId"`
	Variant         types.Variant     `json:"variant"`
	PostTitle       string            `json:"postTitle"`
	State           types.RoomState   `json:"state"`
	MemberCount     int               `json:"memberCount"`
	LastMessage     string            `json:"lastMessage,omitempty"`
	LastMessageType types.MessageType `json:"lastMessageType,omitempty"`
	LastMessageAt   *time.Time        `json:"lastMessageAt,omitempty"`
}
