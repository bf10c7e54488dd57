package types

import "time"

// WireMessage is the JSON payload broadcast on a room's topic and sent to
// websocket subscribers.
type WireMessage struct {
	MessageID         string      `json:"messageId"`
	RoomID            uint        `json:"roomId"`
	SenderID          uint        `json:"senderId"`
	SenderDisplayName string      `json:"senderDisplayName"`
	SenderAvatar      string      `json:"senderAvatar"`
	Content           string      `json:"content"`
	MessageType       MessageType `json:"messageType"`
	SentAt            time.Time   `json:"sentAt"`
}

// NewWireMessage pairs a persisted message with the sender snapshot taken
// at send time.
func NewWireMessage(msg *Message, sender SenderSnapshot) WireMessage {
	return WireMessage{
		MessageID:         msg.ID,
		RoomID:            msg.RoomID,
		SenderID:          msg.SenderID,
		SenderDisplayName: sender.Nickname,
		SenderAvatar:      sender.ImageURL,
		Content:           msg.Content,
		MessageType:       msg.Type,
		SentAt:            msg.SentAt,
	}
}
