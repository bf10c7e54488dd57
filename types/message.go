package types

import (
	"time"

	"gorm.io/datatypes"
)

type MessageType string

const (
	MessageTypeTalk  MessageType = "TALK"
	MessageTypeEnter MessageType = "ENTER"
	MessageTypeLeave MessageType = "LEAVE"
)

// Message is one immutable entry of a room's append-only log. SentAt is
// assigned monotonically per room at append time and is the delivery
// ordering key. ENTER/LEAVE system messages travel through the same log
// and the same visibility rules as TALK messages.
type Message struct {
	ID       string      `json:"id" gorm:"primaryKey"`
	RoomID   uint        `json:"room_id" gorm:"index:idx_messages_room_sent,priority:1"`
	SenderID uint        `json:"sender_id"`
	Content  string      `json:"content"`
	Type     MessageType `json:"type"`
	SentAt   time.Time   `json:"sent_at" gorm:"index:idx_messages_room_sent,priority:2"`

	// SenderInfo is a denormalized snapshot (nickname, avatar) taken at
	// send time, so rendering old history does not depend on the member
	// aggregate still looking the same.
	SenderInfo datatypes.JSON `json:"sender_info"`
}

// SenderSnapshot is the JSON shape stored in Message.SenderInfo.
type SenderSnapshot struct {
	Nickname string `json:"nickname"`
	ImageURL string `json:"image_url"`
}
