package chat

import (
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
)

// EventPublisher decouples broadcast fan-out from the transactional
// join/leave/send path: by the time Publish is called, the mutation has
// committed, and a failing broadcast never rolls it back. Implementations
// must preserve per-topic ordering.
type EventPublisher interface {
	Publish(topic string, msg types.WireMessage)
}

// NopPublisher drops everything; useful when running the engine without a
// realtime surface.
type NopPublisher struct{}

func (NopPublisher) Publish(string, types.WireMessage) {}
