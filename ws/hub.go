package ws

import (
	"encoding/json"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/robfig/cron/v3"
)

const (
	broadcastChannelSize = 1000
	registerChannelSize  = 64
)

type broadcastItem struct {
	topic string
	data  []byte
}

// Hub is the realtime fan-out registry: websocket subscribers keyed by
// room topic. It implements chat.EventPublisher. Fan-out for one topic is
// done inline in the run loop, so subscribers observe messages in store
// order; a subscriber whose send buffer is full is dropped rather than
// allowed to stall the room.
type Hub struct {
	topics map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan broadcastItem

	// idle subscribers are swept on a cron schedule; the registry must
	// never grow without bound on abandoned connections
	idleTTL   time.Duration
	sweepSpec string
	sweep     chan struct{}

	done chan struct{}
}

func NewHub(idleTTL time.Duration, sweepSpec string) *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client, registerChannelSize),
		Unregister: make(chan *Client, registerChannelSize),
		broadcast:  make(chan broadcastItem, broadcastChannelSize),
		idleTTL:    idleTTL,
		sweepSpec:  sweepSpec,
		sweep:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Publish implements chat.EventPublisher. The engine calls it after the
// unit of work committed, so a full broadcast queue may delay fan-out but
// never holds a room mutation open.
func (h *Hub) Publish(topic string, msg types.WireMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		globals.AppLogger.Error("could not marshal wire message", "topic", topic, "error", err)
		return
	}
	select {
	case h.broadcast <- broadcastItem{topic: topic, data: data}:
	case <-h.done:
	}
}

// Run is the hub event loop handling register, unregister, broadcast and
// sweep events. All registry access happens on this goroutine.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if h.sweepSpec != "" {
		if _, err := cronRunner.AddFunc(h.sweepSpec, h.requestSweep); err != nil {
			globals.AppLogger.Error("could not schedule idle sweep", "spec", h.sweepSpec, "error", err)
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	for {
		select {
		case client := <-h.Register:
			subs, ok := h.topics[client.topic]
			if !ok {
				subs = make(map[*Client]struct{})
				h.topics[client.topic] = subs
			}
			subs[client] = struct{}{}
			globals.AppLogger.Debug("subscriber registered", "topic", client.topic, "member_id", client.memberID)

		case client := <-h.Unregister:
			h.drop(client)

		case item := <-h.broadcast:
			for client := range h.topics[item.topic] {
				select {
				case client.Send <- item.data:
				default:
					// slow consumer, keep the room moving
					globals.AppLogger.Warn("dropping slow subscriber", "topic", item.topic, "member_id", client.memberID)
					h.drop(client)
				}
			}

		case <-h.sweep:
			h.sweepIdle()

		case <-h.done:
			return
		}
	}
}

func (h *Hub) requestSweep() {
	select {
	case h.sweep <- struct{}{}:
	default:
	}
}

func (h *Hub) sweepIdle() {
	cutoff := time.Now().Add(-h.idleTTL)
	for topic, subs := range h.topics {
		for client := range subs {
			if client.LastSeen().Before(cutoff) {
				globals.AppLogger.Info("sweeping idle subscriber", "topic", topic, "member_id", client.memberID)
				h.drop(client)
			}
		}
	}
}

// drop runs on the hub goroutine.
func (h *Hub) drop(client *Client) {
	subs, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := subs[client]; !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, client.topic)
	}
	close(client.Send)
}

// Stop terminates the run loop. Pending broadcasts are discarded.
func (h *Hub) Stop() {
	close(h.done)
}
